package jwtx

import (
	"github.com/labstack/echo/v4"

	"movierental/model"
)

// ContextKey is where the auth middleware stores the verified identity.
const ContextKey = "user"

func IdentityFromContext(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(ContextKey).(model.Identity)
	return id, ok
}
