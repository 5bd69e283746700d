package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter wires the collaborator-facing HTTP surface. The chat widget and
// the dashboard are served from elsewhere and only consume this API.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.Default()

	router.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type"},
	}))

	api := router.Group("/api")
	{
		api.GET("/health", h.Health)
		api.POST("/session", h.CreateSession)
		api.POST("/chat", h.Chat)
		api.GET("/conversation/:sessionId", h.GetConversation)
		api.DELETE("/conversation/:sessionId", h.DeleteConversation)
		api.DELETE("/conversations", h.DeleteAllConversations)
		api.GET("/sessions", h.ListSessions)
		api.POST("/analyze-lead/:sessionId", h.AnalyzeLead)
	}

	return router
}
