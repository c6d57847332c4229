package middleware

import (
	"fmt"
	"strings"

	"anoa.com/campuscomplaint/internal/entity"
	userRepo "anoa.com/campuscomplaint/internal/modules/user/repository"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/response"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
)

// Claims is the token issued by the campus identity provider. Subject is the
// user id.
type Claims struct {
	Role       string `json:"role"`
	Faculty    string `json:"faculty,omitempty"`
	Department string `json:"department,omitempty"`
	Email      string `json:"email,omitempty"`
	FirstName  string `json:"first_name,omitempty"`
	LastName   string `json:"last_name,omitempty"`
	jwt.RegisteredClaims
}

type AuthMiddleware struct {
	userRepo userRepo.UserRepository
	secret   []byte
	log      logrus.FieldLogger
}

func NewAuthMiddleware(userRepo userRepo.UserRepository, secret string, log logrus.FieldLogger) *AuthMiddleware {
	return &AuthMiddleware{
		userRepo: userRepo,
		secret:   []byte(secret),
		log:      log,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")

		if authHeader != "" {
			parts := strings.Split(authHeader, " ")
			if len(parts) == 2 && parts[0] == "Bearer" {
				tokenString = parts[1]
			}
		}

		// Fallback to query parameter "token" (useful for WebSockets)
		if tokenString == "" {
			tokenString = c.Query("token")
		}

		if tokenString == "" {
			m.abort(c, apperror.New(apperror.ErrUnauthenticated, "authorization required", nil))
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return m.secret, nil
		})
		if err != nil || !token.Valid {
			m.abort(c, apperror.New(apperror.ErrUnauthenticated, "invalid or expired token", err))
			return
		}

		actor, err := claims.Actor()
		if err != nil {
			m.abort(c, err)
			return
		}

		m.syncUser(c, actor, claims)

		c.Set(response.ActorKey, actor)
		c.Set(response.UserIDKey, actor.UserID)
		c.Next()
	}
}

// RequireRole rejects authenticated callers whose role is not listed.
func (m *AuthMiddleware) RequireRole(roles ...entity.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, err := response.GetActor(c)
		if err != nil {
			m.abort(c, err)
			return
		}

		for _, role := range roles {
			if actor.Role == role {
				c.Next()
				return
			}
		}

		m.abort(c, apperror.Unauthorized("your role cannot perform this action"))
	}
}

// Actor validates the identity claims and turns them into the caller
// representation used by the services.
func (cl *Claims) Actor() (entity.Actor, error) {
	role := entity.Role(cl.Role)
	if cl.Subject == "" || !role.IsValid() {
		return entity.Actor{}, apperror.New(apperror.ErrUnauthenticated, "token is missing a subject or a known role", nil)
	}

	actor := entity.Actor{
		UserID:     cl.Subject,
		Role:       role,
		Department: strings.TrimSpace(cl.Department),
	}
	if cl.Faculty != "" {
		faculty := entity.Faculty(cl.Faculty)
		if !faculty.IsValid() {
			return entity.Actor{}, apperror.New(apperror.ErrUnauthenticated, "token carries an unknown faculty", nil)
		}
		actor.Faculty = faculty
	}
	return actor, nil
}

// syncUser keeps the local user row in step with the token so ownership keys
// and admin fan-out resolve. Failures are logged and the request continues.
func (m *AuthMiddleware) syncUser(c *gin.Context, actor entity.Actor, claims *Claims) {
	user := &entity.User{
		ID:        actor.UserID,
		Email:     claims.Email,
		FirstName: claims.FirstName,
		LastName:  claims.LastName,
		Role:      actor.Role,
	}
	if actor.Faculty != "" {
		faculty := actor.Faculty
		user.Faculty = &faculty
	}
	if actor.Department != "" {
		department := actor.Department
		user.Department = &department
	}

	if err := m.userRepo.Upsert(c.Request.Context(), user); err != nil {
		m.log.WithError(err).WithField("user_id", actor.UserID).Warn("failed to sync user from token")
	}
}

func (m *AuthMiddleware) abort(c *gin.Context, err error) {
	response.ResponseError(c, err)
	c.Abort()
}
