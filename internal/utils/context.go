package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/polarad/portal/internal/middleware"
	"github.com/polarad/portal/internal/types"
)

var ErrNoAuthenticatedUser = errors.New("no authenticated user in request context")

// GetCurrentUser returns the principal stashed by AuthMiddleware.
// Callers behind the middleware treat an error as a 401.
func GetCurrentUser(ctx *gin.Context) (middleware.AuthenticatedUser, error) {
	value, exists := ctx.Get(types.ContextUserKey)
	if !exists {
		return middleware.AuthenticatedUser{}, ErrNoAuthenticatedUser
	}

	user, ok := value.(middleware.AuthenticatedUser)
	if !ok {
		return middleware.AuthenticatedUser{}, ErrNoAuthenticatedUser
	}

	return user, nil
}

func GetCurrentUserID(ctx *gin.Context) (uint, error) {
	user, err := GetCurrentUser(ctx)
	return user.ID, err
}
