package main

import (
	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/auth"
	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/chat"
	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/middleware"

	"github.com/gin-gonic/gin"
)

// newRouter assembles the HTTP surface: the credential endpoints behind
// the rate limiter, the authenticated REST endpoints, and the websocket
// entry point.
func newRouter(srv *Server, jwtMgr *auth.JWTManager, limiter *middleware.LimiterStore, gw *chat.Gateway, verifier chat.UserVerifier) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	v1 := r.Group("/v1")

	authGroup := v1.Group("/auth", middleware.RateLimit(limiter))
	authGroup.POST("/register", srv.handleRegister)
	authGroup.POST("/login", srv.handleLogin)

	usersGroup := v1.Group("/users", authRequired(jwtMgr))
	usersGroup.GET("/search", srv.handleSearch)
	usersGroup.GET("/conversations", srv.handleConversations)
	usersGroup.GET("/:id/messages", srv.handleHistory)

	v1.GET("/ws", chat.ServeWS(gw, jwtMgr, verifier))

	return r
}
