package routes

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/kataras/iris/v12"
	"gorm.io/datatypes"

	"github.com/14sf/Sfm.pay/models"
	"github.com/14sf/Sfm.pay/services"
	"github.com/14sf/Sfm.pay/storage"
	"github.com/14sf/Sfm.pay/utils"
)

// GetChats lists the current user's chats, most recently active first.
func GetChats(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	if userID == "" {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}

	chats, err := services.DefaultStore.GetChats(ctx.Request().Context(), userID)
	if err != nil {
		ctx.StopWithStatus(http.StatusInternalServerError)
		return
	}
	ctx.JSON(iris.Map{"success": true, "chats": chats})
}

type CreateChatInput struct {
	Participants []string             `json:"participants" validate:"required,min=1"`
	Metadata     *models.ChatMetadata `json:"metadata"`
}

// CreateChat opens a new conversation between the current user and the
// given participants and returns the generated chat ID.
func CreateChat(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	if userID == "" {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}

	var input CreateChatInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	var metadata datatypes.JSON
	if input.Metadata != nil {
		metadata, _ = json.Marshal(input.Metadata)
	}

	chatID, err := services.DefaultMessenger.CreateChat(ctx.Request().Context(), userID, input.Participants, metadata)
	if err != nil {
		ctx.StopWithStatus(http.StatusBadGateway)
		return
	}
	ctx.JSON(iris.Map{"success": true, "chatID": chatID})
}

// ListChatMessages returns a chat's messages in timestamp order.
func ListChatMessages(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	if userID == "" {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	chatID := ctx.Params().Get("chatID")

	if _, ok := requireChatMember(ctx, chatID, userID); !ok {
		return
	}

	msgs, err := services.DefaultStore.GetMessages(ctx.Request().Context(), chatID)
	if err != nil {
		handleStoreError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"success": true, "messages": msgs})
}

type SendMessageInput struct {
	Content string `json:"content" validate:"required_without=PaymentAmount,lt=5000"`
	Type    string `json:"type" validate:"omitempty,oneof=text image document payment"`
	// File payload, image and document messages only
	FileName string `json:"fileName"`
	FileSize int64  `json:"fileSize"`
	MimeType string `json:"mimeType"`
	// Payment payload, payment messages only; a payment-typed send must
	// carry a positive amount and a currency.
	PaymentAmount   float64 `json:"paymentAmount" validate:"required_if=Type payment,omitempty,gt=0"`
	PaymentCurrency string  `json:"paymentCurrency" validate:"required_if=Type payment,required_with=PaymentAmount"`
}

// SendChatMessage appends a message to the chat on behalf of the current
// user. Payment-typed inputs become payment requests.
func SendChatMessage(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	if userID == "" {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	chatID := ctx.Params().Get("chatID")

	chat, ok := requireChatMember(ctx, chatID, userID)
	if !ok {
		return
	}

	var input SendMessageInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	reqCtx := ctx.Request().Context()
	var msg models.Message
	var err error

	switch models.MessageType(input.Type) {
	case models.MessageTypePayment:
		msg, err = services.DefaultMessenger.RequestPayment(reqCtx, userID, chatID, input.PaymentAmount, input.PaymentCurrency)
	case models.MessageTypeImage, models.MessageTypeDocument:
		msg, err = services.DefaultMessenger.SendMessage(reqCtx, userID, chatID, services.OutgoingMessage{
			Content: input.Content,
			Type:    models.MessageType(input.Type),
			File: &models.FileInfo{
				FileName: input.FileName,
				FileSize: input.FileSize,
				MimeType: input.MimeType,
			},
		})
	default:
		msg, err = services.DefaultMessenger.SendMessage(reqCtx, userID, chatID, services.OutgoingMessage{
			Content: input.Content,
		})
	}
	if err != nil {
		handleStoreError(err, ctx)
		return
	}

	// Push notification for the receiving side, teacher-of-record pattern:
	// fire and forget, delivery problems never fail the send.
	if storage.DB != nil {
		var sender models.User
		if dbErr := storage.DB.First(&sender, "id = ?", userID).Error; dbErr == nil {
			senderName := fmt.Sprintf("%s %s", sender.FirstName, sender.LastName)
			notificationService := services.NewNotificationService()
			go notificationService.SendMessageNotification(chat, msg, senderName)
		}
	}

	ctx.JSON(iris.Map{"success": true, "message": msg})
}

// MarkChatRead resets the chat's unread counter for the current user.
func MarkChatRead(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	if userID == "" {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	chatID := ctx.Params().Get("chatID")

	if _, ok := requireChatMember(ctx, chatID, userID); !ok {
		return
	}

	if err := services.DefaultStore.MarkChatRead(ctx.Request().Context(), chatID, userID); err != nil {
		handleStoreError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

type SetMessageStateInput struct {
	ChatID     string   `json:"chatID" validate:"required"`
	MessageIDs []string `json:"messageIDs" validate:"required,min=1"`
	Status     string   `json:"status" validate:"required,oneof=delivered read"`
}

// SetMessageState advances delivery state for a batch of messages; the
// store ignores regressions, so repeated calls are harmless.
func SetMessageState(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	if userID == "" {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}

	var input SetMessageStateInput
	if err := ctx.ReadJSON(&input); err != nil {
		utils.HandleValidationErrors(err, ctx)
		return
	}

	if _, ok := requireChatMember(ctx, input.ChatID, userID); !ok {
		return
	}

	err := services.DefaultStore.SetMessageStatus(ctx.Request().Context(),
		input.ChatID, input.MessageIDs, models.MessageStatus(input.Status))
	if err != nil {
		handleStoreError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"success": true})
}

// requireChatMember loads the chat and stops the request unless userID is
// involved in it. Read and write paths share the same guard: an outsider
// can neither see a chat nor mutate it.
func requireChatMember(ctx iris.Context, chatID, userID string) (models.Chat, bool) {
	chat, err := services.DefaultStore.GetChat(ctx.Request().Context(), chatID)
	if err != nil {
		handleStoreError(err, ctx)
		return models.Chat{}, false
	}
	if !chat.Involves(userID) {
		ctx.StopWithStatus(http.StatusForbidden)
		return models.Chat{}, false
	}
	return chat, true
}

// handleStoreError maps the messaging core's error taxonomy to HTTP
// statuses. Nothing propagates as a fault; every failure is scoped to the
// single request that triggered it.
func handleStoreError(err error, ctx iris.Context) {
	var notFound *services.NotFoundError
	var sendErr *services.SendError
	var createErr *services.CreateError
	var payErr *services.PaymentError

	switch {
	case errors.As(err, &notFound):
		utils.JSONError(ctx, http.StatusNotFound, "not_found", notFound.Error())
	case errors.As(err, &payErr):
		// Settled and in-flight rejections are conflicts; anything else is
		// the gateway failing upstream.
		if errors.Is(err, services.ErrAlreadySettled) ||
			errors.Is(err, services.ErrPaymentInFlight) ||
			errors.Is(err, services.ErrNotPayment) {
			utils.JSONError(ctx, http.StatusConflict, "payment_rejected", payErr.Error())
			return
		}
		utils.JSONError(ctx, http.StatusBadGateway, "payment_failed", payErr.Error())
	case errors.As(err, &sendErr):
		utils.JSONError(ctx, http.StatusBadGateway, "send_failed", sendErr.Error())
	case errors.As(err, &createErr):
		utils.JSONError(ctx, http.StatusBadGateway, "create_failed", createErr.Error())
	default:
		ctx.StopWithStatus(http.StatusInternalServerError)
	}
}
