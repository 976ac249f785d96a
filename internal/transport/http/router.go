package httptransport

import (
	"log/slog"

	"github.com/abekov/accountd/internal/transport/http/handler"
	"github.com/abekov/accountd/internal/transport/http/middleware"
	"github.com/gin-gonic/gin"

	sloggin "github.com/samber/slog-gin"
)

func NewRouter(
	logger *slog.Logger,
	authHandler *handler.AuthHandler,
	userHandler *handler.UserHandler,
	uploadHandler *handler.UploadHandler,
	jwtKey []byte,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Security())
	r.Use(sloggin.New(logger))
	r.Use(middleware.Metrics())

	authMW := middleware.Auth(jwtKey)

	auth := r.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/login", authHandler.Login)
	auth.POST("/verify/initiate", authHandler.InitiateVerification)
	auth.POST("/verify", authHandler.ConfirmVerification)
	auth.POST("/reset/initiate", authHandler.InitiatePasswordReset)
	auth.POST("/reset", authHandler.ConfirmPasswordReset)
	auth.POST("/otp/initiate/email", authHandler.InitiateOTPEmail)
	auth.POST("/otp/initiate/sms", authHandler.InitiateOTPSMS)
	auth.POST("/otp/verify", authHandler.VerifyOTP)

	r.GET("/me", authMW, userHandler.Me)

	uploads := r.Group("/uploads", authMW)
	uploads.POST("", uploadHandler.Create)
	uploads.GET("", uploadHandler.List)
	uploads.GET("/:id/download", uploadHandler.Download)
	uploads.DELETE("/:id", middleware.RequireFresh(), uploadHandler.Delete)

	return r
}
