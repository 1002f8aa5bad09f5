package routes

import (
	"net/http"

	"github.com/kataras/iris/v12"

	"github.com/14sf/Sfm.pay/services"
	"github.com/14sf/Sfm.pay/utils"
)

// GetContacts lists the directory used to originate new chats.
func GetContacts(ctx iris.Context) {
	contacts, err := services.DefaultContacts.List(ctx.Request().Context())
	if err != nil {
		ctx.StopWithStatus(http.StatusInternalServerError)
		return
	}
	ctx.JSON(iris.Map{"success": true, "contacts": contacts})
}

// StartContactChat reuses the chat shared with the contact or creates a
// new one, returning its ID either way.
func StartContactChat(ctx iris.Context) {
	userID := utils.CurrentUserID(ctx)
	if userID == "" {
		ctx.StopWithStatus(http.StatusUnauthorized)
		return
	}
	contactID := ctx.Params().Get("contactID")

	reqCtx := ctx.Request().Context()
	contact, err := services.DefaultContacts.Get(reqCtx, contactID)
	if err != nil {
		handleStoreError(err, ctx)
		return
	}

	chatID, err := services.DefaultMessenger.StartChatWithContact(reqCtx, userID, contact)
	if err != nil {
		handleStoreError(err, ctx)
		return
	}
	ctx.JSON(iris.Map{"success": true, "chatID": chatID})
}
