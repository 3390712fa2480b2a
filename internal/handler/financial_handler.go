package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uphsl-enrollment-api/internal/dto"
	"github.com/noah-isme/uphsl-enrollment-api/internal/middleware"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/internal/service"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/response"
)

type financialService interface {
	Create(ctx context.Context, req service.CreateFinancialRecordRequest) (*models.FinancialRecord, error)
	Get(ctx context.Context, id string) (*models.FinancialRecord, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.FinancialRecord, error)
	UpdateFees(ctx context.Context, id string, req service.UpdateFinancialFeesRequest, m service.Mutation) (*models.FinancialRecord, error)
	SetDiscounts(ctx context.Context, id string, discounts models.Discounts, m service.Mutation) (*models.FinancialRecord, error)
	SetScholarship(ctx context.Context, id string, scholarship models.Scholarship, m service.Mutation) (*models.FinancialRecord, error)
	RecordPayment(ctx context.Context, id string, req service.RecordPaymentRequest, m service.Mutation) (*models.FinancialRecord, *models.Receipt, error)
	Receipt(ctx context.Context, id string, index int) (*models.Receipt, error)
	RefreshStatus(ctx context.Context, id string) (*models.FinancialRecord, error)
	Summary(ctx context.Context, studentID string) (*dto.FinancialSummary, bool, error)
}

type documentRenderer interface {
	receiptRenderer
	StatementCSV(record models.FinancialRecord) ([]byte, error)
}

// FinancialHandler exposes financial record endpoints.
type FinancialHandler struct {
	service   financialService
	documents documentRenderer
}

// NewFinancialHandler constructs FinancialHandler.
func NewFinancialHandler(svc financialService, documents documentRenderer) *FinancialHandler {
	return &FinancialHandler{service: svc, documents: documents}
}

// Create godoc
// @Summary Open a financial record
// @Tags Financial Records
// @Accept json
// @Produce json
// @Param payload body service.CreateFinancialRecordRequest true "Financial record"
// @Success 201 {object} response.Envelope
// @Router /financial-records [post]
func (h *FinancialHandler) Create(c *gin.Context) {
	var req service.CreateFinancialRecordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	record, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.Created(c, record)
}

// Get godoc
// @Summary Get financial record
// @Tags Financial Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /financial-records/{id} [get]
func (h *FinancialHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.JSON(c, http.StatusOK, record, nil)
}

// ListByStudent godoc
// @Summary List financial records of a student
// @Tags Financial Records
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/financial-records [get]
func (h *FinancialHandler) ListByStudent(c *gin.Context) {
	records, err := h.service.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, nil)
}

// UpdateFees godoc
// @Summary Replace tuition and fee items
// @Tags Financial Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.UpdateFinancialFeesRequest true "Fees"
// @Success 200 {object} response.Envelope
// @Router /financial-records/{id}/fees [put]
func (h *FinancialHandler) UpdateFees(c *gin.Context) {
	var req service.UpdateFinancialFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	h.mutate(c, func(ctx context.Context, id string, m service.Mutation) (*models.FinancialRecord, error) {
		return h.service.UpdateFees(ctx, id, req, m)
	})
}

// SetDiscounts godoc
// @Summary Replace discounts
// @Tags Financial Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body []models.Discount true "Discounts"
// @Success 200 {object} response.Envelope
// @Router /financial-records/{id}/discounts [put]
func (h *FinancialHandler) SetDiscounts(c *gin.Context) {
	var discounts models.Discounts
	if err := c.ShouldBindJSON(&discounts); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	h.mutate(c, func(ctx context.Context, id string, m service.Mutation) (*models.FinancialRecord, error) {
		return h.service.SetDiscounts(ctx, id, discounts, m)
	})
}

// SetScholarship godoc
// @Summary Replace scholarship
// @Tags Financial Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body models.Scholarship true "Scholarship"
// @Success 200 {object} response.Envelope
// @Router /financial-records/{id}/scholarship [put]
func (h *FinancialHandler) SetScholarship(c *gin.Context) {
	var scholarship models.Scholarship
	if err := c.ShouldBindJSON(&scholarship); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	h.mutate(c, func(ctx context.Context, id string, m service.Mutation) (*models.FinancialRecord, error) {
		return h.service.SetScholarship(ctx, id, scholarship, m)
	})
}

// RecordPayment godoc
// @Summary Record a payment
// @Tags Financial Records
// @Accept json
// @Produce json
// @Param id path string true "Record ID"
// @Param payload body service.RecordPaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Router /financial-records/{id}/payments [post]
func (h *FinancialHandler) RecordPayment(c *gin.Context) {
	var req service.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	m, err := mutationFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, receipt, err := h.service.RecordPayment(c.Request.Context(), c.Param("id"), req, m)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.Created(c, PaymentResult{Record: record, Receipt: receipt})
}

// Receipt godoc
// @Summary Receipt of a payment
// @Tags Financial Records
// @Produce json
// @Produce application/pdf
// @Param id path string true "Record ID"
// @Param index path int true "Zero based payment index"
// @Param format query string false "json (default) or pdf"
// @Success 200 {object} response.Envelope
// @Router /financial-records/{id}/payments/{index}/receipt [get]
func (h *FinancialHandler) Receipt(c *gin.Context) {
	index, err := paymentIndex(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	receipt, err := h.service.Receipt(c.Request.Context(), c.Param("id"), index)
	if err != nil {
		response.Error(c, err)
		return
	}
	writeReceipt(c, h.documents, receipt)
}

// Statement godoc
// @Summary Payment statement as CSV
// @Tags Financial Records
// @Produce text/csv
// @Param id path string true "Record ID"
// @Success 200 {file} file
// @Router /financial-records/{id}/statement.csv [get]
func (h *FinancialHandler) Statement(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.documents.StatementCSV(*record)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, service.StatementFilename(*record), "text/csv", payload)
}

// RefreshStatus godoc
// @Summary Persist the status derived as of now
// @Tags Financial Records
// @Produce json
// @Param id path string true "Record ID"
// @Success 200 {object} response.Envelope
// @Router /financial-records/{id}/refresh-status [post]
func (h *FinancialHandler) RefreshStatus(c *gin.Context) {
	record, err := h.service.RefreshStatus(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.JSON(c, http.StatusOK, record, nil)
}

// Summary godoc
// @Summary Financial summary of a student
// @Tags Financial Records
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/financial-summary [get]
func (h *FinancialHandler) Summary(c *gin.Context) {
	summary, cacheHit, err := h.service.Summary(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, summary, nil, middleware.ExtractMeta(c))
}

type financialMutation func(ctx context.Context, id string, m service.Mutation) (*models.FinancialRecord, error)

func (h *FinancialHandler) mutate(c *gin.Context, apply financialMutation) {
	m, err := mutationFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := apply(c.Request.Context(), c.Param("id"), m)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.JSON(c, http.StatusOK, record, nil)
}
