package main

import (
	"companion-booking-server/routes"
	"companion-booking-server/storage"
	"companion-booking-server/utils"
	"log"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kataras/iris/v12"
	"github.com/kataras/iris/v12/middleware/jwt"
)

func main() {
	// Only load .env in development
	if os.Getenv("RENDER") == "" {
		godotenv.Load()
	}

	db, err := storage.InitializeDB()
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	redisClient := storage.NewRedis()

	tokens := utils.NewTokenService(db, redisClient)
	users := routes.NewUserHandler(db, tokens)
	companions := routes.NewCompanionHandler(db)
	bookings := routes.NewBookingHandler(db, routes.SessionConfigFromEnv())
	chat := routes.NewChatHandler(db, redisClient)
	admins := routes.NewAdminHandler(db)

	app := iris.New()
	app.Validator = validator.New()

	// CORS configuration
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

	// JWT verifiers
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
		if err := ctx.ReadJSON(&tokenInput); err != nil {
			return ""
		}
		return tokenInput.RefreshToken
	})

	app.Get("/health", func(ctx iris.Context) {
		ctx.JSON(iris.Map{"status": "ok"})
	})

	user := app.Party("/api/user")
	{
		user.Post("/register", users.Register)
		user.Post("/login", users.Login)
		user.Get("/profile", accessTokenVerifierMiddleware, users.GetProfile)
		user.Patch("/profile", accessTokenVerifierMiddleware, users.UpdateProfile)
	}

	companion := app.Party("/api/companion")
	{
		companion.Get("/", companions.List)
		companion.Get("/my-profile", accessTokenVerifierMiddleware, companions.MyProfile)
		companion.Get("/{id:uint}", companions.Get)
		companion.Post("/", accessTokenVerifierMiddleware, companions.Create)
		companion.Put("/{id:uint}", accessTokenVerifierMiddleware, companions.Update)
		companion.Delete("/{id:uint}", accessTokenVerifierMiddleware, companions.Delete)
	}

	booking := app.Party("/api/bookings", accessTokenVerifierMiddleware)
	{
		booking.Get("/", bookings.ListMine)
		booking.Get("/all", utils.AdminOnlyMiddleware, bookings.AdminList)
		booking.Post("/", bookings.Create)
		booking.Put("/{id:uint}/approve", utils.AdminOnlyMiddleware, bookings.Approve)
		booking.Put("/{id:uint}/reject", utils.AdminOnlyMiddleware, bookings.Reject)
		booking.Delete("/{id:uint}", bookings.Delete)
	}

	chatParty := app.Party("/api/chat", accessTokenVerifierMiddleware)
	{
		chatParty.Get("/bookings/{id:uint}/messages", chat.ListMessages)
		chatParty.Post("/bookings/{id:uint}/messages", chat.SendMessage)
		chatParty.Get("/bookings/{id:uint}/status", chat.Status)
		chatParty.Post("/bookings/{id:uint}/typing", chat.Typing)
		chatParty.Get("/bookings/{id:uint}/typing", chat.ListTyping)
	}

	admin := app.Party("/api/admin", accessTokenVerifierMiddleware, utils.AdminOnlyMiddleware)
	{
		admin.Get("/users", admins.ListUsers)
		admin.Get("/users/{id:uint}", admins.GetUser)
		admin.Delete("/users/{id:uint}", admins.DeleteUser)
		admin.Get("/activity", admins.Activity)
	}

	app.Post("/api/refresh", refreshTokenVerifierMiddleware, tokens.Refresh)

	port := os.Getenv("PORT")
	if port == "" {
		port = "4000"
	}
	addr := "0.0.0.0:" + port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
