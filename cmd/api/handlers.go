package main

import (
	"errors"
	"net/http"
	"time"

	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/auth"
	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/data"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/v2/bson"
)

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Mobile   string `json:"mobile"`
	Password string `json:"password" binding:"required,min=8"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type authResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Mobile    string    `json:"mobile,omitempty"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// handleRegister creates an account and returns a token for it.
func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration payload"})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to hash password"})
		return
	}

	user, err := s.users.CreateUser(c.Request.Context(), req.Name, req.Email, req.Mobile, hashed)
	if err != nil {
		if errors.Is(err, data.ErrUserExists) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email already exists"})
			return
		}
		s.log.WithError(err).Error("create user failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create user"})
		return
	}

	token, expiresAt, err := s.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusCreated, authResponse{
		ID:        user.ID.Hex(),
		Name:      user.Name,
		Email:     user.Email,
		Mobile:    user.Mobile,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// handleLogin authenticates a user and returns a token.
func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid login payload"})
		return
	}

	user, err := s.users.GetUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}
		s.log.WithError(err).Error("login lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	if err := auth.CheckPassword(user.Password, req.Password); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}

	token, expiresAt, err := s.auth.GenerateToken(user.ID, user.Email)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, authResponse{
		ID:        user.ID.Hex(),
		Name:      user.Name,
		Email:     user.Email,
		Mobile:    user.Mobile,
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// handleSearch finds users matching a query, excluding the caller.
func (s *Server) handleSearch(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth claims"})
		return
	}

	query := c.Query("query")
	if query == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "search query is required"})
		return
	}

	users, err := s.users.Search(c.Request.Context(), query, uid)
	if err != nil {
		s.log.WithError(err).Error("user search failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	c.JSON(http.StatusOK, users)
}

// handleConversations lists the caller's chat partners with last
// message and unread count, most recent first.
func (s *Server) handleConversations(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth claims"})
		return
	}

	summaries, err := s.msgs.Conversations(c.Request.Context(), uid)
	if err != nil {
		s.log.WithError(err).Error("conversations aggregation failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	conversations := make([]*data.Conversation, 0, len(summaries))
	for _, sum := range summaries {
		partner, err := s.users.GetUserByID(c.Request.Context(), sum.Partner)
		if err != nil {
			if errors.Is(err, data.ErrUserNotFound) {
				continue
			}
			s.log.WithError(err).Error("conversation partner lookup failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
			return
		}

		recipient := sum.Partner
		if sum.LastSender == sum.Partner {
			recipient = uid
		}
		conversations = append(conversations, &data.Conversation{
			User: partner,
			LastMessage: &data.Message{
				ID:        sum.LastMessageID,
				Sender:    sum.LastSender,
				Recipient: recipient,
				Content:   sum.LastContent,
				Read:      sum.LastRead,
				CreatedAt: sum.LastCreatedAt,
			},
			UnreadCount: sum.UnreadCount,
		})
	}

	c.JSON(http.StatusOK, conversations)
}

// handleHistory returns the conversation with the given user in
// chronological order and marks their unread messages as read, the way
// opening a conversation does.
func (s *Server) handleHistory(c *gin.Context) {
	uid, ok := currentUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing auth claims"})
		return
	}

	partnerID, err := bson.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}

	if _, err := s.users.GetUserByID(c.Request.Context(), partnerID); err != nil {
		if errors.Is(err, data.ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
			return
		}
		s.log.WithError(err).Error("history partner lookup failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	messages, err := s.msgs.History(c.Request.Context(), uid, partnerID, 100)
	if err != nil {
		s.log.WithError(err).Error("history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
		return
	}

	if err := s.msgs.MarkConversationRead(c.Request.Context(), uid, partnerID); err != nil {
		// history still returns; the unread counter catches up on the next open
		s.log.WithError(err).Warn("failed to mark conversation read")
	}

	c.JSON(http.StatusOK, messages)
}
