package customer

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"movierental/app/echoServer/validation"
	"movierental/model"
	customersvc "movierental/service/customer"
)

type Controller struct {
	Svc customersvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

func (h *Controller) fail(c echo.Context, err error) error {
	if errors.Is(err, customersvc.ErrNotFound) {
		return notFound(c)
	}
	h.Log.Error("customer error", "err", err, "path", c.Path(), "req_id", c.Response().Header().Get(echo.HeaderXRequestID))
	return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something failed."})
}

func notFound(c echo.Context) error {
	return c.JSON(http.StatusNotFound, echo.Map{"message": "The customer with the given ID was not found."})
}

// GET /api/customers
// @Summary  List customers sorted by name
// @Tags     customers
// @Produce  json
// @Success  200  {array}  model.Customer
// @Router   /api/customers [get]
func (h *Controller) List(c echo.Context) error {
	rows, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// GET /api/customers/:id
// @Summary  Get customer
// @Tags     customers
// @Produce  json
// @Param    id  path  string  true  "customer id"
// @Success  200  {object}  model.Customer
// @Failure  404  {object}  map[string]any
// @Router   /api/customers/{id} [get]
func (h *Controller) Detail(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return notFound(c)
	}
	cu, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cu)
}

// POST /api/customers
// @Summary   Create customer
// @Tags      customers
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     payload  body  model.CustomerReq  true  "customer"
// @Success   200  {object}  model.Customer
// @Failure   400  {object}  map[string]any
// @Router    /api/customers [post]
func (h *Controller) Create(c echo.Context) error {
	var req model.CustomerReq
	if err := validation.Bind(c, h.V, &req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}
	cu, err := h.Svc.Create(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cu)
}

// PUT /api/customers/:id
// @Summary   Update customer
// @Tags      customers
// @Accept    json
// @Produce   json
// @Security  BearerAuth
// @Param     id       path  string             true  "customer id"
// @Param     payload  body  model.CustomerReq  true  "customer"
// @Success   200  {object}  model.Customer
// @Failure   400  {object}  map[string]any
// @Failure   404  {object}  map[string]any
// @Router    /api/customers/{id} [put]
func (h *Controller) Update(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return notFound(c)
	}
	var req model.CustomerReq
	if err := validation.Bind(c, h.V, &req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.Body(err))
	}
	cu, err := h.Svc.Update(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cu)
}

// DELETE /api/customers/:id  (admin)
// @Summary   Delete customer
// @Tags      customers
// @Produce   json
// @Security  BearerAuth
// @Param     id  path  string  true  "customer id"
// @Success   200  {object}  model.Customer
// @Failure   403  {object}  map[string]any
// @Failure   404  {object}  map[string]any
// @Router    /api/customers/{id} [delete]
func (h *Controller) Delete(c echo.Context) error {
	id, ok := validation.ParamID(c, "id")
	if !ok {
		return notFound(c)
	}
	cu, err := h.Svc.Delete(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, cu)
}
