package services

import (
	"encoding/json"
	"fmt"
	"log"

	"github.com/14sf/Sfm.pay/models"
	"github.com/14sf/Sfm.pay/storage"
	"github.com/14sf/Sfm.pay/utils"
)

// NotificationService handles all push notification logic
type NotificationService struct{}

// NewNotificationService creates a new notification service instance
func NewNotificationService() *NotificationService {
	return &NotificationService{}
}

// NotificationData represents the data payload for notifications
type NotificationData struct {
	Type   string `json:"type"`
	ChatID string `json:"chatId,omitempty"`
	UserID string `json:"userId,omitempty"`
	// Deep linking data
	Screen string `json:"screen"`           // Target screen to navigate to
	Params string `json:"params"`           // JSON string of navigation parameters
	Action string `json:"action,omitempty"` // Specific action to perform
}

// getUserPushTokens retrieves all push tokens for a user
func (ns *NotificationService) getUserPushTokens(userID string) ([]string, error) {
	var user models.User
	if err := storage.DB.First(&user, "id = ?", userID).Error; err != nil {
		return nil, fmt.Errorf("user not found: %v", err)
	}

	if user.AllowsNotifications == nil || !*user.AllowsNotifications || user.PushTokens == nil {
		return nil, fmt.Errorf("user has notifications disabled or no tokens")
	}

	var tokens []string
	if err := json.Unmarshal(user.PushTokens, &tokens); err != nil {
		return nil, fmt.Errorf("failed to unmarshal push tokens: %v", err)
	}

	return tokens, nil
}

// SendNotificationToUser sends a notification to a specific user
func (ns *NotificationService) SendNotificationToUser(userID string, title, body string, data NotificationData) error {
	tokens, err := ns.getUserPushTokens(userID)
	if err != nil {
		log.Printf("Failed to get push tokens for user %s: %v", userID, err)
		return err
	}

	dataMap := map[string]string{
		"type":   data.Type,
		"chatId": data.ChatID,
		"userId": data.UserID,
		"screen": data.Screen,
		"params": data.Params,
		"action": data.Action,
	}

	var lastError error
	for _, token := range tokens {
		if err := utils.SendNotification(token, title, body, dataMap); err != nil {
			log.Printf("Failed to send notification to token %s: %v", token, err)
			lastError = err
		}
	}

	return lastError
}

// SendMessageNotification notifies every participant besides the sender
// that a new message arrived in their chat.
func (ns *NotificationService) SendMessageNotification(chat models.Chat, msg models.Message, senderName string) {
	title := "💬 Nouveau Message"
	body := fmt.Sprintf("%s vous a envoyé un message", senderName)
	if msg.Type == models.MessageTypePayment && msg.Payment != nil {
		title = "💰 Demande de Paiement"
		body = fmt.Sprintf("%s vous demande %v %s", senderName, msg.Payment.Amount, msg.Payment.Currency)
	}

	params := fmt.Sprintf(`{"chatId": %q, "senderId": %q}`, chat.ID, msg.SenderID)
	data := NotificationData{
		Type:   "message_received",
		ChatID: chat.ID,
		UserID: msg.SenderID,
		Screen: "Messages",
		Params: params,
		Action: "view_conversation",
	}

	for _, userID := range chat.Audience() {
		if userID == msg.SenderID {
			continue
		}
		if err := ns.SendNotificationToUser(userID, title, body, data); err != nil {
			log.Printf("Failed to send message notification to user %s: %v", userID, err)
		}
	}
}

// SendPaymentCompletedNotification notifies the payment requester that the
// request was settled.
func (ns *NotificationService) SendPaymentCompletedNotification(chat models.Chat, requesterID string, amount float64, currency string) error {
	title := "✅ Paiement Reçu"
	body := fmt.Sprintf("Paiement de %v %s complété", amount, currency)

	params := fmt.Sprintf(`{"chatId": %q}`, chat.ID)
	data := NotificationData{
		Type:   "payment_completed",
		ChatID: chat.ID,
		Screen: "Messages",
		Params: params,
		Action: "view_conversation",
	}

	return ns.SendNotificationToUser(requesterID, title, body, data)
}
