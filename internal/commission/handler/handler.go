package handler

import (
	"net/http"

	"flyttbas_backend/internal/commission/service"
	"flyttbas_backend/internal/commission/transport"
	"flyttbas_backend/platform/httpkit"
	"flyttbas_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const msgInvalidRequest = "invalid request"

// Handler handles HTTP requests for commission settings and the fee ledger.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new commission handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterAdminRoutes mounts administrator routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("/settings", h.GetSettings)
	rg.PUT("/settings", h.UpdateSettings)
	rg.GET("/fees", h.ListFees)
	rg.GET("/fees/:id", h.GetFee)
	rg.GET("/offers/:offerId/fee", h.GetFeeByOffer)
	rg.POST("/fees/:id/invoice", h.GenerateInvoice)
	rg.POST("/fees/:id/paid", h.MarkPaid)
	rg.POST("/fees/:id/credit-note", h.IssueCreditNote)
	rg.GET("/partners/:partnerId/summary", h.AdminPartnerSummary)
}

// RegisterPartnerRoutes mounts the partner's own ledger view.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.GET("/fees", h.ListOwnFees)
	rg.GET("/summary", h.OwnSummary)
}

func (h *Handler) GetSettings(c *gin.Context) {
	result, err := h.svc.GetSettings(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) UpdateSettings(c *gin.Context) {
	var req transport.UpdateSettingsRequest
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

	result, err := h.svc.SetDefaults(c.Request.Context(), identity.UserID(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) ListFees(c *gin.Context) {
	var req transport.ListFeesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req, nil)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetFee(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GetFeeByOffer(c *gin.Context) {
	offerID, ok := parseUUIDParam(c, "offerId")
	if !ok {
		return
	}
	result, err := h.svc.GetByOffer(c.Request.Context(), offerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) GenerateInvoice(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.GenerateInvoice(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) MarkPaid(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	result, err := h.svc.MarkPaid(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) IssueCreditNote(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}
	var req transport.CreditNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.IssueCreditNote(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) AdminPartnerSummary(c *gin.Context) {
	partnerID, ok := parseUUIDParam(c, "partnerId")
	if !ok {
		return
	}
	result, err := h.svc.PartnerSummary(c.Request.Context(), partnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) ListOwnFees(c *gin.Context) {
	partnerID, ok := httpkit.MustGetPartnerID(c)
	if !ok {
		return
	}
	var req transport.ListFeesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req, &partnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) OwnSummary(c *gin.Context) {
	partnerID, ok := httpkit.MustGetPartnerID(c)
	if !ok {
		return
	}
	result, err := h.svc.PartnerSummary(c.Request.Context(), partnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return uuid.Nil, false
	}
	return id, true
}
