package rental

import (
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"movierental/app/echoServer/validation"
	"movierental/model"
	rs "movierental/service/rental"
)

type Controller struct {
	Svc rs.Service
	V   *validator.Validate
	Log *slog.Logger
}

func status(code rs.ErrCode) int {
	switch code {
	case rs.ErrInvalidReference, rs.ErrOutOfStock, rs.ErrAlreadyRented, rs.ErrAlreadyReturned:
		return http.StatusBadRequest
	case rs.ErrNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	st := status(rs.Code(err))
	msg := rs.Message(err)
	if st == http.StatusInternalServerError {
		h.Log.Error(op,
			"err", err,
			"req_id", c.Response().Header().Get(echo.HeaderXRequestID),
			"path", c.Path(),
		)
		msg = "Something failed."
	}
	return c.JSON(st, echo.Map{"message": msg})
}

// pair binds {customerId, movieId}. Ids are validated as uuids first, so the
// parses cannot fail.
func (h *Controller) pair(c echo.Context) (uuid.UUID, uuid.UUID, error) {
	var req model.RentalReq
	if err := validation.Bind(c, h.V, &req); err != nil {
		return uuid.Nil, uuid.Nil, err
	}
	return uuid.MustParse(req.CustomerID), uuid.MustParse(req.MovieID), nil
}

// Create checks a movie out to a customer.
// @Summary   Checkout
// @Tags      rentals
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     payload  body  model.RentalReq  true  "customer and movie"
// @Success   200  {object}  model.Rental
// @Failure   400  {object}  map[string]any "invalid reference, out of stock or already rented"
// @Failure   500  {object}  map[string]any
// @Router    /api/rentals [post]
func (h *Controller) Create(c echo.Context) error {
	customerID, movieID, err := h.pair(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}

	r, err := h.Svc.Checkout(c.Request().Context(), customerID, movieID)
	if err != nil {
		return h.fail(c, "rental checkout", err)
	}
	return c.JSON(http.StatusOK, r)
}

// Return closes the open rental of a customer/movie pair.
// @Summary   Return
// @Tags      returns
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     payload  body  model.RentalReq  true  "customer and movie"
// @Success   200  {object}  model.Rental
// @Failure   400  {object}  map[string]any "already returned"
// @Failure   404  {object}  map[string]any "rental not found"
// @Failure   500  {object}  map[string]any
// @Router    /api/returns [post]
func (h *Controller) Return(c echo.Context) error {
	customerID, movieID, err := h.pair(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}

	r, err := h.Svc.Return(c.Request().Context(), customerID, movieID)
	if err != nil {
		return h.fail(c, "rental return", err)
	}
	return c.JSON(http.StatusOK, r)
}

// GET /api/rentals
// @Summary  List rentals, newest first
// @Tags     rentals
// @Produce  json
// @Success  200  {array}  model.Rental
// @Router   /api/rentals [get]
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return h.fail(c, "rental list", err)
	}
	return c.JSON(http.StatusOK, rows)
}

// GET /api/rentals/:id
// @Summary  Get rental
// @Tags     rentals
// @Produce  json
// @Param    id  path  string  true  "rental id"
// @Success  200  {object}  model.Rental
// @Failure  404  {object}  map[string]any
// @Router   /api/rentals/{id} [get]
func (h *Controller) Detail(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "The rental with the given ID was not found."})
	}
	r, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "rental detail", err)
	}
	return c.JSON(http.StatusOK, r)
}

// GET /api/rentals/lookup
// @Summary  Most recent rental of a customer/movie pair
// @Tags     rentals
// @Produce  json
// @Param    customerId  query  string  true  "customer id"
// @Param    movieId     query  string  true  "movie id"
// @Success  200  {object}  model.Rental
// @Failure  400  {object}  map[string]any
// @Failure  404  {object}  map[string]any
// @Router   /api/rentals/lookup [get]
func (h *Controller) Lookup(c echo.Context) error {
	var q LookupQuery
	if err := validation.Bind(c, h.V, &q); err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}
	r, err := h.Svc.Lookup(c.Request().Context(), uuid.MustParse(q.CustomerID), uuid.MustParse(q.MovieID))
	if err != nil {
		return h.fail(c, "rental lookup", err)
	}
	return c.JSON(http.StatusOK, r)
}
