package http

import (
	"context"
	"errors"
	"log/slog"
	nethttp "net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	appsvc "ragchat-api/internal/app"
	"ragchat-api/internal/bootstrap"
	"ragchat-api/internal/repository"
	"ragchat-api/internal/transport/http/handler"
	"ragchat-api/internal/transport/http/middleware"
)

// Routes holds everything the engine needs; NewRouter fills it from the App.
type Routes struct {
	Auth         *handler.AuthHandler
	Admin        *handler.AdminHandler
	Conversation *handler.ConversationHandler
	Document     *handler.DocumentHandler
	Health       *handler.HealthHandler

	Authenticator middleware.Authenticator
	Gatherer      prometheus.Gatherer
	Logger        *slog.Logger
}

func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)

	userRepo := repository.NewUserRepository(app.MySQL)
	documentRepo := repository.NewDocumentRepository(app.MySQL)
	conversationRepo := repository.NewConversationRepository(app.MySQL)
	messageRepo := repository.NewMessageRepository(app.MySQL)

	authService := appsvc.NewAuthService(userRepo, app.Hasher, app.Codec, app.AuthMetrics, app.Logger)
	adminService := appsvc.NewAdminService(userRepo, app.Hasher, app.Logger)
	chatService := appsvc.NewChatService(conversationRepo, messageRepo, app.Publisher, app.HistoryCache, app.Logger)
	documentService := appsvc.NewDocumentService(documentRepo)

	health := handler.NewHealthHandler(handler.ServiceInfo{
		Name:      app.Config.App.Name,
		Env:       app.Config.App.Env,
		Version:   app.Config.App.Version,
		StartedAt: app.StartedAt,
	}, map[string]handler.DependencyCheck{
		"mysql": func(ctx context.Context) error {
			sqlDB, err := app.MySQL.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
		"redis": func(ctx context.Context) error {
			return app.Redis.Ping(ctx).Err()
		},
		"rabbitmq": func(context.Context) error {
			if app.MQConn == nil || app.MQConn.IsClosed() {
				return errors.New("connection closed")
			}
			return nil
		},
	})

	return NewEngine(Routes{
		Auth:          handler.NewAuthHandler(authService),
		Admin:         handler.NewAdminHandler(adminService),
		Conversation:  handler.NewConversationHandler(chatService),
		Document:      handler.NewDocumentHandler(documentService),
		Health:        health,
		Authenticator: authService,
		Gatherer:      app.Registry,
		Logger:        app.Logger,
	})
}

func NewEngine(routes Routes) *gin.Engine {
	logger := routes.Logger
	if logger == nil {
		logger = slog.Default()
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.RequestLogger(logger), gin.Recovery())

	router.GET("/", routes.Health.Root)
	router.GET("/health", routes.Health.Check)
	router.GET("/healthz", routes.Health.Check)
	if routes.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(routes.Gatherer, promhttp.HandlerOpts{})))
	}

	requireUser := middleware.AuthJWT(routes.Authenticator, logger)

	v1 := router.Group("/api/v1")
	authGroup := v1.Group("/auth")
	authGroup.POST("/register", routes.Auth.Register)
	authGroup.POST("/login", routes.Auth.Login)
	authGroup.POST("/login/form", routes.Auth.LoginForm)
	authGroup.GET("/me", requireUser, routes.Auth.Me)

	adminGroup := v1.Group("/admin")
	adminGroup.Use(requireUser, middleware.RequireSuperuser())
	adminGroup.GET("/users", routes.Admin.ListUsers)
	adminGroup.GET("/users/:id", routes.Admin.GetUser)
	adminGroup.PATCH("/users/:id/status", routes.Admin.UpdateUserStatus)

	documentGroup := v1.Group("/documents")
	documentGroup.Use(requireUser)
	documentGroup.POST("", routes.Document.Create)
	documentGroup.GET("", routes.Document.List)
	documentGroup.GET("/:id", routes.Document.Get)
	documentGroup.DELETE("/:id", routes.Document.Delete)

	conversationGroup := v1.Group("/conversations")
	conversationGroup.Use(requireUser)
	conversationGroup.POST("", routes.Conversation.Create)
	conversationGroup.GET("", routes.Conversation.List)
	conversationGroup.DELETE("/:id", routes.Conversation.Delete)
	conversationGroup.POST("/:id/messages", routes.Conversation.SendMessage)
	conversationGroup.GET("/:id/messages", routes.Conversation.History)

	return router
}

// NewServer wraps the engine with CORS and the server timeouts. Credentials
// are only allowed for an explicit origin list.
func NewServer(addr string, engine nethttp.Handler, allowedOrigins []string) *nethttp.Server {
	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders:   []string{middleware.HeaderRequestID, "WWW-Authenticate"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	})
	return &nethttp.Server{
		Addr:              addr,
		Handler:           corsHandler(engine),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
