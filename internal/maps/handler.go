package maps

import (
	"net/http"

	"flyttbas_backend/platform/apperr"
	"flyttbas_backend/platform/httpkit"
	"flyttbas_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

// Handler exposes address lookup and the admin distance lookup.
type Handler struct {
	svc *Service
	val *validator.Validator
}

func NewHandler(svc *Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// LookupAddress handles GET /api/v1/maps/address-lookup?q=...
func (h *Handler) LookupAddress(c *gin.Context) {
	var req LookupRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "query 'q' is required (min 3 chars)", nil)
		return
	}

	results, err := h.svc.SearchAddress(c.Request.Context(), req.Query)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, results)
}

// Distance handles GET /api/v1/admin/maps/distance.
func (h *Handler) Distance(c *gin.Context) {
	var req DistanceRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	origin := Point{Address: req.FromAddress, Lat: req.FromLat, Lng: req.FromLng}
	destination := Point{Address: req.ToAddress, Lat: req.ToLat, Lng: req.ToLng}
	if !complete(origin) || !complete(destination) {
		httpkit.HandleError(c, apperr.Validation("each end needs an address or both coordinates"))
		return
	}

	route, err := h.svc.Distance(c.Request.Context(), origin, destination)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, route)
}

func complete(p Point) bool {
	return p.hasCoordinates() || p.Address != ""
}

// RegisterPublic mounts the address autocomplete used by the quote form.
func (h *Handler) RegisterPublic(rg *gin.RouterGroup) {
	rg.GET("/address-lookup", h.LookupAddress)
}
