package movie

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

func (h *Controller) fail(c echo.Context, err error) error {
	switch catalogsvc.Code(err) {
	case catalogsvc.ErrMovieNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	case catalogsvc.ErrInvalidGenre, catalogsvc.ErrOutOfStock:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	}
	h.Log.Error("movie error", "err", err, "path", c.Path(), "req_id", c.Response().Header().Get(echo.HeaderXRequestID))
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something failed."})
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"message": "The movie with the given ID was not found."})
}

// GET /api/movies
// @Summary  List movies sorted by title
// @Tags     movies
// @Produce  json
// @Success  200  {array}  model.Movie
// @Router   /api/movies [get]
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.ListMovies(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// GET /api/movies/:id
// @Summary  Get movie
// @Tags     movies
// @Produce  json
// @Param    id  path  string  true  "movie id"
// @Success  200  {object}  model.Movie
// @Failure  404  {object}  map[string]any
// @Router   /api/movies/{id} [get]
func (h *Controller) Detail(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return notFound(c)
	}
	m, err := h.Svc.GetMovie(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// POST /api/movies
// @Summary   Create movie
// @Tags      movies
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     payload  body  model.MovieReq  true  "movie"
// @Success   200  {object}  model.Movie
// @Failure   400  {object}  map[string]any "validation error or invalid genre"
// @Router    /api/movies [post]
func (h *Controller) Create(c echo.Context) error {
	var req model.MovieReq
	if err := validation.Bind(c, h.V, &req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}
	m, err := h.Svc.CreateMovie(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// PUT /api/movies/:id
// @Summary   Update movie
// @Tags      movies
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id       path  string          true  "movie id"
// @Param     payload  body  model.MovieReq  true  "movie"
// @Success   200  {object}  model.Movie
// @Failure   400  {object}  map[string]any
// @Failure   404  {object}  map[string]any
// @Router    /api/movies/{id} [put]
func (h *Controller) Update(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return notFound(c)
	}
	var req model.MovieReq
	if err := validation.Bind(c, h.V, &req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}
	m, err := h.Svc.UpdateMovie(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// DELETE /api/movies/:id  (admin)
// @Summary   Delete movie
// @Tags      movies
// @Produce   json
// @Security  BearerAuth
// @Param     id  path  string  true  "movie id"
// @Success   200  {object}  model.Movie
// @Failure   403  {object}  map[string]any
// @Failure   404  {object}  map[string]any
// @Router    /api/movies/{id} [delete]
func (h *Controller) Delete(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return notFound(c)
	}
	m, err := h.Svc.DeleteMovie(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}
