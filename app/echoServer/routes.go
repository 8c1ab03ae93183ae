package echoServer

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"movierental/app/echoServer/controller/auth"
	"movierental/app/echoServer/controller/customer"
	"movierental/app/echoServer/controller/genre"
	"movierental/app/echoServer/controller/movie"
	"movierental/app/echoServer/controller/rental"
	"movierental/app/echoServer/validation"
	"movierental/util/metrics"
)

type C struct {
	Auth     *auth.Controller
	Genre    *genre.Controller
	Movie    *movie.Controller
	Customer *customer.Controller
	Rental   *rental.Controller

	Tokens  Verifier
	Metrics *metrics.Collector
	// Ping reports storage health for /health.
	Ping func(ctx context.Context) error
}

// New builds an echo instance with the JSON serializer, validator, error
// handler and common middleware installed.
func New(log *slog.Logger, m *metrics.Collector) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = newJSONSerializer()
	e.Validator = validation.New()
	e.HTTPErrorHandler = errorHandler(log)

	RegisterMiddlewares(e, log)
	if m != nil {
		e.Use(m.Middleware())
	}
	return e
}

func Register(e *echo.Echo, c C) {
	e.GET("/health", func(ctx echo.Context) error {
		if c.Ping != nil {
			if err := c.Ping(ctx.Request().Context()); err != nil {
				return ctx.JSON(http.StatusServiceUnavailable, map[string]any{
					"status":  "unavailable",
					"message": err.Error(),
				})
			}
		}
		return ctx.JSON(http.StatusOK, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})
	if c.Metrics != nil {
		e.GET("/metrics", c.Metrics.Handler())
	}
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	authn := JWTAuth(c.Tokens)
	api := e.Group("/api")

	// Users
	api.POST("/users", c.Auth.Register)
	api.GET("/users/me", c.Auth.Me, authn)
	api.POST("/auth", c.Auth.Login)

	// Genres
	api.GET("/genres", c.Genre.List)
	api.GET("/genres/:id", c.Genre.Detail)
	api.POST("/genres", c.Genre.Create, authn)
	api.PUT("/genres/:id", c.Genre.Update, authn)
	api.DELETE("/genres/:id", c.Genre.Delete, authn, RequireAdmin)

	// Movies
	api.GET("/movies", c.Movie.List)
	api.GET("/movies/:id", c.Movie.Detail)
	api.POST("/movies", c.Movie.Create, authn)
	api.PUT("/movies/:id", c.Movie.Update, authn)
	api.DELETE("/movies/:id", c.Movie.Delete, authn, RequireAdmin)

	// Customers
	api.GET("/customers", c.Customer.List)
	api.GET("/customers/:id", c.Customer.Detail)
	api.POST("/customers", c.Customer.Create, authn)
	api.PUT("/customers/:id", c.Customer.Update, authn)
	api.DELETE("/customers/:id", c.Customer.Delete, authn, RequireAdmin)

	// Rentals
	api.GET("/rentals", c.Rental.List)
	api.GET("/rentals/lookup", c.Rental.Lookup)
	api.GET("/rentals/:id", c.Rental.Detail)
	api.POST("/rentals", c.Rental.Create, authn)
	api.POST("/returns", c.Rental.Return, authn)
}
