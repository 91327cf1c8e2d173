package handler

import (
	"net/http"

	"flyttbas_backend/internal/offers/service"
	"flyttbas_backend/internal/offers/transport"
	"flyttbas_backend/internal/shared/actor"
	"flyttbas_backend/platform/httpkit"
	"flyttbas_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for offers and jobs.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new offers handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterCustomerQuoteRoutes mounts the offer list under /quotes.
func (h *Handler) RegisterCustomerQuoteRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/offers", h.ListForQuote)
}

// RegisterCustomerRoutes mounts the customer's offer decisions.
func (h *Handler) RegisterCustomerRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id", h.Get)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
}

// RegisterPartnerRoutes mounts bidding and job progress for moving companies.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.ListForPartner)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/withdraw", h.Withdraw)
	rg.POST("/:id/job-status", h.UpdateJobStatus)
}

// RegisterAdminRoutes mounts the full offer surface for administrators.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.POST("", h.Create)
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.POST("/:id/approve", h.Approve)
	rg.POST("/:id/reject", h.Reject)
	rg.POST("/:id/withdraw", h.Withdraw)
	rg.POST("/:id/job-status", h.UpdateJobStatus)
}

// RegisterAdminQuoteRoutes mounts the offer list under /admin/quotes.
func (h *Handler) RegisterAdminQuoteRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/offers", h.ListForQuote)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Create(c.Request.Context(), actor.FromIdentity(identity), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), actor.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) ListForQuote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	items, err := h.svc.ListForQuote(c.Request.Context(), actor.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": items})
}

func (h *Handler) ListForPartner(c *gin.Context) {
	var req transport.ListOffersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	partnerID, ok := httpkit.MustGetPartnerID(c)
	if !ok {
		return
	}

	result, err := h.svc.ListForPartner(c.Request.Context(), partnerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListOffersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Approve(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Approve(c.Request.Context(), actor.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Reject(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.RejectOfferRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Reject(c.Request.Context(), actor.FromIdentity(identity), id, req.Reason)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Withdraw(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Withdraw(c.Request.Context(), actor.FromIdentity(identity), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) UpdateJobStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateJobStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.UpdateJobStatus(c.Request.Context(), actor.FromIdentity(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
