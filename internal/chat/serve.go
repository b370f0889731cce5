package chat

import (
	"context"
	"net/http"
	"strings"

	"github.com/PaulBabatuyi/reaTimeChat-WS/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/v2/bson"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// UserVerifier confirms that an authenticated identity still exists. A
// token for a deleted user must be rejected at the handshake.
type UserVerifier interface {
	UserExists(ctx context.Context, id bson.ObjectID) (bool, error)
}

// ServeWS authenticates the handshake and hands the connection to the
// gateway. The credential arrives once, at connection establishment: a
// `token` query parameter or a bearer Authorization header. Rejections
// happen before the upgrade so the client sees an HTTP 401, distinct
// from a normal disconnect, and no registry or presence state is
// touched for a rejected connection.
func ServeWS(g *Gateway, jwtMgr *auth.JWTManager, users UserVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := c.Query("token")
		if token == "" {
			header := c.GetHeader("Authorization")
			parts := strings.SplitN(header, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
				token = strings.TrimSpace(parts[1])
			}
		}
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing credentials"})
			return
		}

		claims, err := jwtMgr.VerifyToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		uid, err := bson.ObjectIDFromHex(claims.UserID)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		exists, err := users.UserExists(c.Request.Context(), uid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "failed to verify user"})
			return
		}
		if !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unknown user"})
			return
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			g.log.WithError(err).Warn("websocket upgrade failed")
			return
		}

		// the session outlives the HTTP handler; its lifetime is the
		// connection's, not the request's
		s := NewSession(uid, conn)
		go g.Serve(context.Background(), s)
	}
}
