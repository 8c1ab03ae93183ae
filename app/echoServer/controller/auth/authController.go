// app/echoServer/controller/auth/authController.go
package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"movierental/app/echoServer/jwtx"
	"movierental/app/echoServer/validation"
	"movierental/model"
	authsvc "movierental/service/auth"
)

const HeaderAuthToken = "x-auth-token"

type Controller struct {
	Svc authsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func (ct *Controller) fail(c echo.Context, op string, err error) error {
	switch authsvc.Code(err) {
	case authsvc.ErrEmailTaken, authsvc.ErrInvalidCreds, authsvc.ErrBadInput:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case authsvc.ErrUserNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	default:
		rid := c.Response().Header().Get(echo.HeaderXRequestID)
		ct.Log.Error(op+" failed",
			"err", err,
			"req_id", rid,
			"path", c.Path(),
			"method", c.Request().Method,
		)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something failed."})
	}
}

// Register a new user
// @Summary      Register user
// @Description  Register a new user; the access token is returned in the x-auth-token header
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        payload  body  model.RegisterReq  true  "Register payload"
// @Success      200  {object}  model.User
// @Failure      400  {object}  map[string]any "validation error or email already registered"
// @Failure      500  {object}  map[string]any "internal server error"
// @Router       /api/users [post]
func (ct *Controller) Register(c echo.Context) error {
	var req model.RegisterReq
	if err := validation.Bind(c, ct.V, &req); err != nil {
		ct.Log.Warn("bind failed", "path", c.Path(), "err", err)
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}

	u, token, err := ct.Svc.Register(c.Request().Context(), req)
	if err != nil {
		return ct.fail(c, "register", err)
	}

	c.Response().Header().Set(HeaderAuthToken, token)
	return c.JSON(http.StatusOK, u)
}

// Login
// @Summary      Login
// @Description  Login with email + password, returns JWT
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        payload  body  model.LoginReq  true  "Login payload"
// @Success      200  {object}  map[string]any
// @Failure      400  {object}  map[string]any
// @Failure      500  {object}  map[string]any
// @Router       /api/auth [post]
func (ct *Controller) Login(c echo.Context) error {
	var req model.LoginReq
	if err := validation.Bind(c, ct.V, &req); err != nil {
		ct.Log.Warn("bind failed", "path", c.Path(), "err", err)
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}

	_, token, err := ct.Svc.Login(c.Request().Context(), req)
	if err != nil {
		return ct.fail(c, "login", err)
	}

	c.Response().Header().Set(HeaderAuthToken, token)
	return c.JSON(http.StatusOK, echo.Map{
		"message": "login success",
		"token":   token,
	})
}

// Me
// @Summary      Current user
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  model.User
// @Failure      401  {object}  map[string]any
// @Failure      404  {object}  map[string]any
// @Router       /api/users/me [get]
func (ct *Controller) Me(c echo.Context) error {
	id, ok := jwtx.IdentityFromContext(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Access denied. No token provided."})
	}

	u, err := ct.Svc.Me(c.Request().Context(), id.UserID)
	if err != nil {
		return ct.fail(c, "me", err)
	}
	return c.JSON(http.StatusOK, u)
}
