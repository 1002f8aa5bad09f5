package routes

import (
	"net/http"

	"github.com/kataras/iris/v12"

	"github.com/14sf/Sfm.pay/services"
	"github.com/14sf/Sfm.pay/storage"
	"github.com/14sf/Sfm.pay/utils"
)

// PayMessage runs the payment flow for one payment-typed message: invokes
// the gateway for the requested amount and, on success, appends the
// confirmation message to the chat.
func PayMessage(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	if userID == "" {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	chatID := ctx.Params().Get("chatID")
	messageID := ctx.Params().Get("messageID")

	chat, ok := requireChatMember(ctx, chatID, userID)
	if !ok {
		return
	}

	reqCtx := ctx.Request().Context()
	if err := services.DefaultPaymentFlow.Pay(reqCtx, userID, chatID, messageID); err != nil {
		handleStoreError(err, ctx)
		return
	}

	// Tell the requester their request was settled; fire and forget.
	if storage.DB != nil {
		msg, msgErr := services.DefaultStore.GetMessage(reqCtx, chatID, messageID)
		if msgErr == nil && msg.Payment != nil {
			notificationService := services.NewNotificationService()
			go notificationService.SendPaymentCompletedNotification(chat, msg.SenderID, msg.Payment.Amount, msg.Payment.Currency)
		}
	}

	ctx.JSON(iris.Map{"success": true})
}
