package genre

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"movierental/app/echoServer/validation"
	"movierental/model"
	catalogsvc "movierental/service/catalog"
)

type Controller struct {
	Svc catalogsvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

var notFound = echo.Map{"message": "The genre with the given ID was not found."}

func (h *Controller) fail(c echo.Context, err error) error {
	if catalogsvc.Code(err) == catalogsvc.ErrGenreNotFound {
		return c.JSON(http.StatusNotFound, notFound)
	}
	h.Log.Error("genre error", "err", err, "path", c.Path(), "req_id", c.Response().Header().Get(echo.HeaderXRequestID))
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something failed."})
}

// List genres
// @Summary  List genres sorted by name
// @Tags     genres
// @Produce  json
// @Success  200  {array}  model.Genre
// @Router   /api/genres [get]
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.ListGenres(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// Detail
// @Summary  Get genre
// @Tags     genres
// @Produce  json
// @Param    id  path  string  true  "genre id"
// @Success  200  {object}  model.Genre
// @Failure  404  {object}  map[string]any
// @Router   /api/genres/{id} [get]
func (h *Controller) Detail(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, notFound)
	}
	g, err := h.Svc.GetGenre(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// Create
// @Summary   Create genre
// @Tags      genres
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     payload  body  model.GenreReq  true  "genre"
// @Success   200  {object}  model.Genre
// @Failure   400  {object}  map[string]any
// @Failure   401  {object}  map[string]any
// @Router    /api/genres [post]
func (h *Controller) Create(c echo.Context) error {
	var req model.GenreReq
	if err := validation.Bind(c, h.V, &req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}
	g, err := h.Svc.CreateGenre(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// Update
// @Summary   Rename genre
// @Tags      genres
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id       path  string          true  "genre id"
// @Param     payload  body  model.GenreReq  true  "genre"
// @Success   200  {object}  model.Genre
// @Failure   400  {object}  map[string]any
// @Failure   404  {object}  map[string]any
// @Router    /api/genres/{id} [put]
func (h *Controller) Update(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, notFound)
	}
	var req model.GenreReq
	if err := validation.Bind(c, h.V, &req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}
	g, err := h.Svc.UpdateGenre(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// Delete  (admin)
// @Summary   Delete genre
// @Tags      genres
// @Produce   json
// @Security  BearerAuth
// @Param     id  path  string  true  "genre id"
// @Success   200  {object}  model.Genre
// @Failure   403  {object}  map[string]any
// @Failure   404  {object}  map[string]any
// @Router    /api/genres/{id} [delete]
func (h *Controller) Delete(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, notFound)
	}
	g, err := h.Svc.DeleteGenre(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}
