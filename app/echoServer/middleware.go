// app/echoServer/middleware.go
package echoServer

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"movierental/app/echoServer/jwtx"
	"movierental/model"
)

// Verifier turns a bearer token into the caller identity.
type Verifier interface {
	Verify(token string) (model.Identity, error)
}

func RegisterMiddlewares(e *echo.Echo, log *slog.Logger) {

	e.Use(middleware.Recover())

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))

	e.Use(Slog(log))
}

func Slog(log *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			lat := time.Since(start).Milliseconds()

			rid := c.Response().Header().Get(echo.HeaderXRequestID)
			log.Info("http",
				"method", c.Request().Method,
				"path", c.Path(),
				"status", c.Response().Status,
				"latency_ms", lat,
				"req_id", rid,
				"ip", c.RealIP(),
				"ua", c.Request().UserAgent(),
			)
			return err
		}
	}
}

// JWTAuth accepts "Authorization: Bearer <t>" or "x-auth-token: <t>" and
// stores the verified identity under jwtx.ContextKey.
func JWTAuth(v Verifier) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		ContextKey:  jwtx.ContextKey,
		TokenLookup: "header:Authorization:Bearer ,header:x-auth-token",
		ParseTokenFunc: func(c echo.Context, auth string) (interface{}, error) {
			return v.Verify(auth)
		},
		ErrorHandler: func(c echo.Context, err error) error {
			var pe *echojwt.TokenParsingError
			if errors.As(err, &pe) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Invalid token."})
			}
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Access denied. No token provided."})
		},
	})
}

// RequireAdmin must run after JWTAuth.
func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, ok := jwtx.IdentityFromContext(c)
		if !ok {
			return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Access denied. No token provided."})
		}
		if !id.IsAdmin {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Access denied."})
		}
		return next(c)
	}
}

// errorHandler renders every unhandled error as {"message": ...}.
func errorHandler(log *slog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		status := http.StatusInternalServerError
		msg := "Something failed."
		var he *echo.HTTPError
		if errors.As(err, &he) {
			status = he.Code
			if m, ok := he.Message.(string); ok {
				msg = m
			} else {
				msg = http.StatusText(status)
			}
		}
		if status >= http.StatusInternalServerError {
			log.Error("unhandled error",
				"err", err,
				"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
				"path", c.Path(),
				"method", c.Request().Method,
			)
		}

		if c.Request().Method == http.MethodHead {
			err = c.NoContent(status)
		} else {
			err = c.JSON(status, echo.Map{"message": msg})
		}
		if err != nil {
			log.Warn("write error response", "err", err)
		}
	}
}
