package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/roviton/dispatch-api/internal/api/metrics"
	"github.com/roviton/dispatch-api/internal/core/ports"
)

type LoadHandler struct {
	service ports.LoadService
}

func NewLoadHandler(service ports.LoadService) *LoadHandler {
	return &LoadHandler{service: service}
}

// Create handles POST /v1/loads.
//
// @Summary      Create a load
// @Tags         loads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        Idempotency-Key  header    string             false  "Replay protection key"
// @Param        body             body      createLoadRequest  true   "Load details"
// @Success      201   {object}  createLoadResponse
// @Failure      400   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/loads [post]
func (h *LoadHandler) Create(c echo.Context) error {
	var req createLoadRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	result, err := h.service.CreateLoad(c.Request().Context(), caller, toCreateLoadInput(req, c.Request().Header.Get("Idempotency-Key")))
	if err != nil {
		return err
	}

	status := http.StatusCreated
	if result.AlreadyExisted {
		status = http.StatusOK
	} else {
		metrics.LoadsCreatedTotal.WithLabelValues(req.Equipment).Inc()
	}
	return c.JSON(status, createLoadResponse{
		ReferenceNumber: result.ReferenceNumber,
		Status:          result.Status,
		CreatedAt:       result.CreatedAt,
	})
}

// Get handles GET /v1/loads/:reference.
//
// @Summary      Get a load
// @Tags         loads
// @Produce      json
// @Security     BearerAuth
// @Param        reference  path      string  true  "Load reference number"
// @Success      200   {object}  loadDetailResponse
// @Failure      404   {object}  errorResponse
// @Router       /v1/loads/{reference} [get]
func (h *LoadHandler) Get(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	detail, err := h.service.GetLoad(c.Request().Context(), caller, c.Param("reference"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toLoadDetailResponse(detail))
}

// List handles GET /v1/loads.
//
// @Summary      List loads
// @Tags         loads
// @Produce      json
// @Security     BearerAuth
// @Param        status     query     string  false  "Filter by status"
// @Param        equipment  query     string  false  "Filter by equipment type"
// @Param        search     query     string  false  "Partial match on reference or customer"
// @Param        date_from  query     string  false  "Pickup date lower bound (RFC 3339)"
// @Param        date_to    query     string  false  "Pickup date upper bound (RFC 3339)"
// @Param        page       query     int     false  "Page (1-based)"
// @Param        limit      query     int     false  "Page size"
// @Success      200   {object}  listLoadsResponse
// @Router       /v1/loads [get]
func (h *LoadHandler) List(c echo.Context) error {
	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	input := ports.ListLoadsInput{
		Caller:    caller,
		Status:    c.QueryParam("status"),
		Equipment: c.QueryParam("equipment"),
		Search:    c.QueryParam("search"),
	}
	if v := c.QueryParam("date_from"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			input.DateFrom = t
		}
	}
	if v := c.QueryParam("date_to"); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			input.DateTo = t
		}
	}
	input.Page, _ = strconv.Atoi(c.QueryParam("page"))
	input.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	result, err := h.service.ListLoads(c.Request().Context(), input)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toListLoadsResponse(result))
}

// AssignDriver handles POST /v1/loads/:reference/assign.
//
// @Summary      Assign a driver to a load
// @Tags         loads
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        reference  path      string               true  "Load reference number"
// @Param        body       body      assignDriverRequest  true  "Driver assignment"
// @Success      200   {object}  acceptedResponse
// @Failure      403   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /v1/loads/{reference}/assign [post]
func (h *LoadHandler) AssignDriver(c echo.Context) error {
	var req assignDriverRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}

	caller, err := ctxCaller(c)
	if err != nil {
		return err
	}

	if err := h.service.AssignDriver(c.Request().Context(), caller, c.Param("reference"), req.DriverID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, acceptedResponse{Message: "driver assigned"})
}
