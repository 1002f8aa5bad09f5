package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// SFMPayGateway invokes the hosted SFM Pay API. Configuration comes from
// SFM_PAY_URL and SFM_PAY_API_KEY environment variables.
type SFMPayGateway struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewSFMPayGateway() *SFMPayGateway {
	return &SFMPayGateway{
		baseURL: os.Getenv("SFM_PAY_URL"),
		apiKey:  os.Getenv("SFM_PAY_API_KEY"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

type gatewayChargeInput struct {
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

type gatewayChargeResult struct {
	Reference string `json:"reference"`
	Error     struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (g *SFMPayGateway) Invoke(ctx context.Context, amount float64, currency string) (string, error) {
	if g.baseURL == "" {
		return "", fmt.Errorf("SFM_PAY_URL is not configured")
	}

	body, err := json.Marshal(gatewayChargeInput{Amount: amount, Currency: currency})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/charges", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+g.apiKey)

	res, err := g.client.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	var result gatewayChargeResult
	if err := json.NewDecoder(res.Body).Decode(&result); err != nil {
		return "", err
	}
	if res.StatusCode != http.StatusOK {
		if result.Error.Message != "" {
			return "", fmt.Errorf("gateway rejected charge: %s", result.Error.Message)
		}
		return "", fmt.Errorf("gateway rejected charge: status %d", res.StatusCode)
	}
	if result.Reference == "" {
		return "", fmt.Errorf("gateway returned no transaction reference")
	}
	return result.Reference, nil
}
