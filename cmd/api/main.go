// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/authgate/internal/auth"
	"github.com/yourusername/authgate/internal/config"
	"github.com/yourusername/authgate/internal/logging"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := logging.Setup(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	if err != nil {
		log.Fatalf("Failed to configure logging: %v", err)
	}

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	components, err := setupAuth(context.Background(), cfg, logger)
	if err != nil {
		log.Fatalf("Failed to set up auth: %v", err)
	}

	router := newRouter(cfg, components, logger)

	// サーバーの起動
	addr := ":" + cfg.Port
	logger.Info("Starting API server", "addr", addr, "mode", cfg.GinMode, "session_store", cfg.SessionStore)
	if err := router.Run(addr); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// newRouter はミドルウェアとルーティングを組み立てます。
func newRouter(cfg *config.Config, components *authComponents, logger *slog.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logging.RequestLogger(logger))

	// セッションストアの設定
	router.Use(sessions.Sessions(auth.SessionCookieName, components.sessionStore))

	// CORSミドルウェアの設定
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.AllowedOrigins()
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{
		"Origin",
		"Content-Type",
		"Accept",
		"X-CSRF-Token", // CSRF保護用ヘッダー
		logging.RequestIDHeader,
	}
	// フロントエンドがレスポンスヘッダーから CSRF トークンを読み取れるように公開
	corsConfig.ExposeHeaders = []string{"X-CSRF-Token", logging.RequestIDHeader}
	router.Use(cors.New(corsConfig))

	setupRoutes(router, cfg, components.manager)
	return router
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "authgate-api",
		"version": "0.1.0",
	})
}

func handleHello(c *gin.Context) {
	c.String(http.StatusOK, "Hello World again")
}

// setupRoutes は API グループと認証周りの配線を行います。
func setupRoutes(router *gin.Engine, cfg *config.Config, authManager *auth.Manager) {
	router.GET("/", handleHello)
	router.GET("/health", handleHealth)

	// CSRF 検証は設定で有効化した場合のみ挟む
	var csrf gin.HandlerFunc = func(c *gin.Context) { c.Next() }
	if cfg.CSRFEnabled {
		csrf = authManager.VerifyCSRF()
	}

	api := router.Group("/api")
	{
		authRoutes := api.Group("/auth")
		{
			// ログイン・登録時はセッション未生成なので CSRF 検証は不要
			authRoutes.POST("/login", authManager.HandleLogin)
			authRoutes.POST("/register", authManager.HandleRegister)
			authRoutes.POST("/signup", authManager.HandleSignup)
			authRoutes.POST("/logout", csrf, authManager.HandleLogout)
			authRoutes.GET("/me", authManager.HandleCurrentUser)
		}

		userRoutes := api.Group("/users")
		{
			userRoutes.GET("/exists", authManager.HandleCheckExists)
			if cfg.EnableTestEndpoints {
				userRoutes.GET("", authManager.HandleListUsers)
				userRoutes.POST("/reset", authManager.HandleResetUsers)
			}
		}

		protected := api.Group("/protected")
		protected.Use(authManager.RequireSession(), csrf)
		{
			protected.GET("/profile", authManager.HandleProfile)
		}
	}
}
