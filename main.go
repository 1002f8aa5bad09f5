package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"

	"github.com/14sf/Sfm.pay/routes"
	"github.com/14sf/Sfm.pay/services"
	"github.com/14sf/Sfm.pay/storage"
	"github.com/14sf/Sfm.pay/utils"
)

func main() {
	godotenv.Load()
	db := storage.InitializeDB()
	storage.InitializeRedis()

	// The chat index is pushed through Redis pub/sub; REALTIME=memory keeps
	// everything in process for single-node development.
	var realtime storage.Realtime
	if os.Getenv("REALTIME") == "memory" {
		realtime = storage.NewMemoryRealtime()
	} else {
		realtime = storage.NewRedisRealtime(storage.Redis)
	}

	services.Initialize(
		services.NewDBStore(db, realtime),
		services.NewSFMPayGateway(),
		services.LogNotifier{},
	)
	services.DefaultContacts = services.NewDBContactDirectory(db)

	app := iris.New()
	app.Validator = validator.New()

	// CORS for the web dashboard
	app.AllowMethods(iris.MethodOptions)
	app.UseRouter(func(ctx iris.Context) {
		ctx.Header("Access-Control-Allow-Origin", ctx.GetHeader("Origin"))
		ctx.Header("Vary", "Origin")
		ctx.Header("Access-Control-Allow-Credentials", "true")
		ctx.Header("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Requested-With")
		ctx.Header("Access-Control-Allow-Methods", "GET,POST,PATCH,PUT,DELETE,OPTIONS")
		if ctx.Method() == iris.MethodOptions {
			ctx.StatusCode(iris.StatusNoContent)
			return
		}
		ctx.Next()
	})

	app.Use(iris.Compression)

	accessTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("ACCESS_TOKEN_SECRET")))
	accessTokenVerifier.WithDefaultBlocklist()
	accessTokenVerifierMiddleware := accessTokenVerifier.Verify(func() interface{} {
		return new(utils.AccessToken)
	})

	refreshTokenVerifier := jwt.NewVerifier(jwt.HS256, []byte(os.Getenv("REFRESH_TOKEN_SECRET")))
	refreshTokenVerifier.WithDefaultBlocklist()
	refreshTokenVerifierMiddleware := refreshTokenVerifier.Verify(func() interface{} {
		return new(jwt.Claims)
	})

	refreshTokenVerifier.Extractors = append(refreshTokenVerifier.Extractors, func(ctx iris.Context) string {
		var tokenInput utils.RefreshTokenInput
		err := ctx.ReadJSON(&tokenInput)
		if err != nil {
			return ""
		}

		return tokenInput.RefreshToken
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", routes.Register)
		user.Post("/login", routes.Login)
		user.Patch("/{id}/pushtoken", accessTokenVerifierMiddleware, routes.AlterPushToken)
		user.Patch("/{id}/settings/notifications", accessTokenVerifierMiddleware, routes.AllowsNotifications)
	}

	messenger := app.Party("/api/messenger", accessTokenVerifierMiddleware)
	{
		messenger.Get("/chats", routes.GetChats)
		messenger.Post("/chats", routes.CreateChat)
		messenger.Get("/chats/{chatID}/messages", routes.ListChatMessages)
		messenger.Post("/chats/{chatID}/messages", routes.SendChatMessage)
		messenger.Post("/chats/{chatID}/read", routes.MarkChatRead)
		messenger.Post("/messages/state", routes.SetMessageState)
		messenger.Post("/chats/{chatID}/messages/{messageID}/pay", routes.PayMessage)
	}

	contacts := app.Party("/api/contacts", accessTokenVerifierMiddleware)
	{
		contacts.Get("/", routes.GetContacts)
		contacts.Post("/{contactID}/chat", routes.StartContactChat)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, utils.RefreshToken)

	// Get port from environment
	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	fmt.Printf("🚀 Server starting on %s\n", addr)

	// Start server
	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Server failed: %v", err)
	}
}
