package devserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	bearerPrefix = "Bearer "
	userKey      = "user"

	roleUser  = "user"
	roleAdmin = "admin"
)

var (
	ErrMissingAuthHeader = errors.New("missing authorization header")
	ErrInvalidAuthFormat = errors.New("invalid authorization header format")
	ErrEmptyToken        = errors.New("empty token")
)

func extractBearerToken(authHeader string) (string, error) {
	if authHeader == "" {
		return "", ErrMissingAuthHeader
	}

	if !strings.HasPrefix(authHeader, bearerPrefix) {
		return "", ErrInvalidAuthFormat
	}

	token := strings.TrimPrefix(authHeader, bearerPrefix)
	if token == "" {
		return "", ErrEmptyToken
	}

	return token, nil
}

func (s *Server) respondWithError(c *gin.Context, statusCode int, err error, message string) {
	s.logger.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

func currentUser(c *gin.Context) (*user, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	u, ok := v.(*user)
	return u, ok
}

// jwtAuthMiddleware validates the bearer token and loads its user
func (s *Server) jwtAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := extractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			var message string
			switch err {
			case ErrMissingAuthHeader:
				message = "Missing authorization header"
			case ErrInvalidAuthFormat:
				message = "Invalid authorization header format"
			case ErrEmptyToken:
				message = "Empty token"
			}
			s.respondWithError(c, http.StatusUnauthorized, err, message)
			return
		}

		claims, err := s.tokens.validate(token)
		if err != nil {
			s.respondWithError(c, http.StatusUnauthorized, err, "Invalid or expired token")
			return
		}

		id, err := strconv.ParseInt(claims.UserID, 10, 64)
		if err != nil {
			s.respondWithError(c, http.StatusUnauthorized, err, "Invalid or expired token")
			return
		}

		// Tokens of deleted users stop working
		u, ok := s.users.byID(id)
		if !ok {
			s.respondWithError(c, http.StatusUnauthorized, errUserNotFound, "User not found")
			return
		}

		c.Set(userKey, u)
		c.Next()
	}
}

// adminOnlyMiddleware ensures the authenticated user is an admin
func (s *Server) adminOnlyMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		u, ok := currentUser(c)
		if !ok {
			s.respondWithError(c, http.StatusUnauthorized, errors.New("no session"), "Unauthorized")
			return
		}

		if u.Role != roleAdmin {
			s.respondWithError(c, http.StatusForbidden, errors.New("not admin"), "Admin access required")
			return
		}

		c.Next()
	}
}
