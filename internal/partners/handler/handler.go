package handler

import (
	"net/http"

	"flyttbas_backend/internal/partners/service"
	"flyttbas_backend/internal/partners/transport"
	"flyttbas_backend/internal/shared/actor"
	"flyttbas_backend/platform/httpkit"
	"flyttbas_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest = "invalid request"
	// maxMultipartMemory caps the in-memory part of document uploads.
	maxMultipartMemory = 10 << 20
)

// Handler handles HTTP requests for partners.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new partners handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterPublicRoutes mounts the partner application form.
func (h *Handler) RegisterPublicRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", h.Apply)
}

// RegisterPartnerRoutes mounts routes for the authenticated moving company.
func (h *Handler) RegisterPartnerRoutes(rg *gin.RouterGroup) {
	rg.GET("/quotes", h.OpenQuotes)
	rg.GET("/profile", h.Profile)
	rg.POST("/documents/:kind", h.UploadDocument)
}

// RegisterAdminRoutes mounts partner review and configuration routes.
func (h *Handler) RegisterAdminRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:id", h.Get)
	rg.PUT("/:id/status", h.UpdateStatus)
	rg.PUT("/:id/service-area", h.UpdateServiceArea)
	rg.PUT("/:id/commission-override", h.SetCommissionOverride)
	rg.PUT("/:id/sponsored", h.SetSponsored)
	rg.GET("/:id/documents/:kind", h.DocumentURL)
}

// RegisterAdminQuoteRoutes mounts eligibility diagnostics under /admin/quotes.
func (h *Handler) RegisterAdminQuoteRoutes(rg *gin.RouterGroup) {
	rg.GET("/:id/eligible-partners", h.EligibleForQuote)
}

func (h *Handler) Apply(c *gin.Context) {
	var req transport.ApplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.Apply(c.Request.Context(), actor.FromIdentity(httpkit.GetIdentity(c)), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.Created(c, result)
}

func (h *Handler) OpenQuotes(c *gin.Context) {
	var req transport.ListOpenQuotesRequest
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

	result, err := h.svc.OpenQuotesForPartner(c.Request.Context(), partnerID, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) Profile(c *gin.Context) {
	partnerID, ok := httpkit.MustGetPartnerID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), partnerID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) UploadDocument(c *gin.Context) {
	partnerID, ok := httpkit.MustGetPartnerID(c)
	if !ok {
		return
	}
	if err := c.Request.ParseMultipartForm(maxMultipartMemory); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid multipart form", nil)
		return
	}
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "file is required", nil)
		return
	}
	defer func() { _ = file.Close() }()

	result, err := h.svc.UploadDocument(c.Request.Context(), actor.FromIdentity(httpkit.GetIdentity(c)), partnerID,
		c.Param("kind"), header.Filename, header.Header.Get("Content-Type"), header.Size, file)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListPartnersRequest
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

func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.Get(c.Request.Context(), id)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateStatusRequest
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

	result, err := h.svc.UpdateStatus(c.Request.Context(), actor.FromIdentity(identity), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) UpdateServiceArea(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.UpdateServiceAreaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.UpdateServiceArea(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) SetCommissionOverride(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.CommissionOverrideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if httpkit.HandleError(c, h.val.Struct(req)) {
		return
	}

	result, err := h.svc.SetCommissionOverride(c.Request.Context(), id, req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) SetSponsored(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req transport.SponsoredRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.SetSponsored(c.Request.Context(), id, req.IsSponsored)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) DocumentURL(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.DocumentURL(c.Request.Context(), id, c.Param("kind"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (h *Handler) EligibleForQuote(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	result, err := h.svc.EligibleForQuote(c.Request.Context(), id)
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
