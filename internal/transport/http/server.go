package http

import (
	"context"
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirechat-client/internal/auth"
	"github.com/vovakirdan/wirechat-client/internal/config"
	"github.com/vovakirdan/wirechat-client/internal/core"
	"github.com/vovakirdan/wirechat-client/internal/store"
)

// Client is the part of core.ChatClient the HTTP surface drives.
type Client interface {
	CurrentUser() *core.SelfBuddy
	LoggedIn() bool
	Buddies() []*core.Buddy
	Buddy(id string) (*core.Buddy, bool)
	StartChat(ctx context.Context, buddy *core.Buddy) (*core.Chat, error)
	Subscribe(fn func(core.Event)) func()
}

var _ Client = (*core.ChatClient)(nil)

// NewServer builds the local inspection server.
// history may be nil when status history is disabled.
func NewServer(client Client, history store.HistoryStore, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	protected := router.Group("")
	if cfg.APISecret != "" {
		protected.Use(AuthMiddleware(auth.NewJWTConfig(cfg.APISecret, cfg.ClientID, cfg.APITokenTTL), logger))
	}

	api := NewAPIHandlers(client, history, logger)
	apiGroup := protected.Group("/api")
	{
		apiGroup.GET("/self", api.GetSelf)
		apiGroup.PATCH("/self", api.UpdateSelf)
		apiGroup.GET("/buddies", api.ListBuddies)
		apiGroup.GET("/buddies/:id", api.GetBuddy)
		apiGroup.GET("/chats", api.ListChats)
		apiGroup.POST("/chats", api.StartChat)
		apiGroup.DELETE("/chats/:id", api.LeaveChat)
		apiGroup.GET("/history", api.ListHistory)
	}

	protected.GET("/ws", gin.WrapH(NewWSHandler(client, logger)))

	return &stdhttp.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
