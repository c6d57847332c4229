package response

import (
	"net/http"

	"anoa.com/campuscomplaint/internal/entity"
	"anoa.com/campuscomplaint/pkg/apperror"
	"anoa.com/campuscomplaint/pkg/validator"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const (
	ActorKey  = "actor"
	UserIDKey = "user_id"
)

// Result is the tagged outcome of a produced operation.
type Result[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Data    T      `json:"data,omitempty"`
}

func Ok[T any](data T, message string) Result[T] {
	return Result[T]{Success: true, Message: message, Data: data}
}

func Fail[T any](err error) Result[T] {
	return Result[T]{Success: false, Error: apperror.KindOf(err), Message: apperror.Message(err)}
}

// From builds a Result from a service's (value, error) pair.
func From[T any](data T, err error, message string) Result[T] {
	if err != nil {
		return Fail[T](err)
	}
	return Ok(data, message)
}

// GetActor retrieves the authenticated caller from the context
func GetActor(c *gin.Context) (entity.Actor, error) {
	value, exists := c.Get(ActorKey)
	if !exists {
		return entity.Actor{}, apperror.ErrUnauthenticated
	}

	actor, ok := value.(entity.Actor)
	if !ok || !actor.IsAuthenticated() {
		return entity.Actor{}, apperror.ErrUnauthenticated
	}

	return actor, nil
}

// GetUserID retrieves the authenticated user ID from the context
func GetUserID(c *gin.Context) (string, error) {
	actor, err := GetActor(c)
	if err != nil {
		return "", err
	}
	return actor.UserID, nil
}

func Success[T any](c *gin.Context, code int, data T, message string) {
	c.JSON(code, Ok(data, message))
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code >= http.StatusInternalServerError {
		logrus.WithError(err).WithField("path", c.FullPath()).Error("request failed")
	}

	c.JSON(code, Fail[any](err))
}

// BindError reports a request that failed binding or validation.
func BindError(c *gin.Context, err error) {
	ResponseError(c, apperror.New(apperror.ErrInvalidInput, validator.FormatValidationError(err), err))
}
