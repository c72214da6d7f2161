package middleware

import (
	"context"

	"github.com/docharbor/docharbor/internal/models"
)

// UserFrom returns the authenticated user, or nil outside an Auth'd route.
func UserFrom(ctx context.Context) *models.User {
	user, _ := ctx.Value(UserKey).(*models.User)
	return user
}
