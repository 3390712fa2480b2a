package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/uphsl-enrollment-api/internal/dto"
	"github.com/noah-isme/uphsl-enrollment-api/internal/identifier"
	"github.com/noah-isme/uphsl-enrollment-api/internal/middleware"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/response"
)

type enrollmentService interface {
	List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRecord, *models.Pagination, error)
	Get(ctx context.Context, id string) (*models.EnrollmentRecord, error)
	Submit(ctx context.Context, req service.SubmitEnrollmentRequest) (*models.EnrollmentRecord, error)
	Approve(ctx context.Context, id string, req service.EnrollmentDecisionRequest, m service.Mutation) (*models.EnrollmentRecord, error)
	Reject(ctx context.Context, id string, req service.EnrollmentDecisionRequest, m service.Mutation) (*models.EnrollmentRecord, error)
	UpdateSubjectStatus(ctx context.Context, id, subjectID string, req service.UpdateSubjectStatusRequest, m service.Mutation) (*models.EnrollmentRecord, error)
	UpdateGrades(ctx context.Context, id, subjectID string, grades models.GradeComponents, m service.Mutation) (*models.EnrollmentRecord, error)
	UpdateFees(ctx context.Context, id string, req service.UpdateEnrollmentFeesRequest, m service.Mutation) (*models.EnrollmentRecord, error)
	RecordPayment(ctx context.Context, id string, req service.RecordPaymentRequest, m service.Mutation) (*models.EnrollmentRecord, *models.Receipt, error)
	Receipt(ctx context.Context, id string, index int) (*models.Receipt, error)
	GPA(ctx context.Context, studentID string) (*dto.GPAView, bool, error)
}

type receiptRenderer interface {
	RenderPDF(receipt models.Receipt) ([]byte, error)
}

// PaymentResult pairs the updated ledger with the receipt of the new payment.
type PaymentResult struct {
	Record  interface{}     `json:"record"`
	Receipt *models.Receipt `json:"receipt"`
}

// EnrollmentHandler exposes enrollment endpoints.
type EnrollmentHandler struct {
	service  enrollmentService
	receipts receiptRenderer
}

// NewEnrollmentHandler constructs EnrollmentHandler.
func NewEnrollmentHandler(svc enrollmentService, receipts receiptRenderer) *EnrollmentHandler {
	return &EnrollmentHandler{service: svc, receipts: receipts}
}

// List godoc
// @Summary List enrollments
// @Tags Enrollments
// @Produce json
// @Param studentId query string false "Filter by student ID"
// @Param academicYear query string false "Filter by academic year"
// @Param semester query string false "FIRST, SECOND or SUMMER"
// @Param status query string false "PENDING, APPROVED or REJECTED"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /enrollments [get]
func (h *EnrollmentHandler) List(c *gin.Context) {
	filter := models.EnrollmentFilter{
		StudentID:    c.Query("studentId"),
		AcademicYear: c.Query("academicYear"),
		Semester:     models.Semester(c.Query("semester")),
		Status:       models.EnrollmentStatus(c.Query("status")),
	}
	filter.Page, filter.PageSize = pageParams(c)

	records, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Get godoc
// @Summary Get enrollment
// @Tags Enrollments
// @Produce json
// @Param id path string true "Enrollment ID"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id} [get]
func (h *EnrollmentHandler) Get(c *gin.Context) {
	record, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.JSON(c, http.StatusOK, record, nil)
}

// Submit godoc
// @Summary Submit enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param payload body service.SubmitEnrollmentRequest true "Enrollment payload"
// @Success 201 {object} response.Envelope
// @Router /enrollments [post]
func (h *EnrollmentHandler) Submit(c *gin.Context) {
	var req service.SubmitEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	if claims, ok := middleware.ClaimsFromContext(c); ok && claims.Role == models.RoleStudent {
		if err := checkSelfSubmission(claims, req); err != nil {
			response.Error(c, err)
			return
		}
	}
	record, err := h.service.Submit(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.Created(c, record)
}

// checkSelfSubmission limits students to their own enrollment. Fees and
// scholarships are assessed by staff through PUT /enrollments/:id/fees.
func checkSelfSubmission(claims *models.JWTClaims, req service.SubmitEnrollmentRequest) error {
	if identifier.CanonicalStudentID(req.StudentID) != identifier.CanonicalStudentID(claims.UserID) {
		return appErrors.Clone(appErrors.ErrForbidden, "students may only submit their own enrollment")
	}
	if !req.TuitionFee.IsZero() || !req.MiscFees.IsZero() || !req.LabFees.IsZero() ||
		!req.Discount.IsZero() || req.ScholarshipType != "" {
		return appErrors.Clone(appErrors.ErrForbidden, "fees and scholarships are assessed by staff")
	}
	return nil
}

// Approve godoc
// @Summary Approve enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param If-Match header string false "Expected record version"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/approve [post]
func (h *EnrollmentHandler) Approve(c *gin.Context) {
	h.decide(c, h.service.Approve)
}

// Reject godoc
// @Summary Reject enrollment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param If-Match header string false "Expected record version"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/reject [post]
func (h *EnrollmentHandler) Reject(c *gin.Context) {
	h.decide(c, h.service.Reject)
}

type decisionFunc func(ctx context.Context, id string, req service.EnrollmentDecisionRequest, m service.Mutation) (*models.EnrollmentRecord, error)

func (h *EnrollmentHandler) decide(c *gin.Context, decide decisionFunc) {
	var req service.EnrollmentDecisionRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, invalidPayload(err))
			return
		}
	}
	m, err := mutationFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := decide(c.Request.Context(), c.Param("id"), req, m)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.JSON(c, http.StatusOK, record, nil)
}

// UpdateSubjectStatus godoc
// @Summary Change the status of a registered subject
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param subjectId path string true "Subject ID"
// @Param payload body service.UpdateSubjectStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/subjects/{subjectId}/status [patch]
func (h *EnrollmentHandler) UpdateSubjectStatus(c *gin.Context) {
	var req service.UpdateSubjectStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	m, err := mutationFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.UpdateSubjectStatus(c.Request.Context(), c.Param("id"), c.Param("subjectId"), req, m)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.JSON(c, http.StatusOK, record, nil)
}

// UpdateGrades godoc
// @Summary Replace grade components of a registered subject
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param subjectId path string true "Subject ID"
// @Param payload body models.GradeComponents true "Grade components"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/subjects/{subjectId}/grades [put]
func (h *EnrollmentHandler) UpdateGrades(c *gin.Context) {
	var grades models.GradeComponents
	if err := c.ShouldBindJSON(&grades); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	m, err := mutationFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.UpdateGrades(c.Request.Context(), c.Param("id"), c.Param("subjectId"), grades, m)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.JSON(c, http.StatusOK, record, nil)
}

// UpdateFees godoc
// @Summary Replace enrollment fees
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.UpdateEnrollmentFeesRequest true "Fees"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/fees [put]
func (h *EnrollmentHandler) UpdateFees(c *gin.Context) {
	var req service.UpdateEnrollmentFeesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, invalidPayload(err))
		return
	}
	m, err := mutationFromRequest(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	record, err := h.service.UpdateFees(c.Request.Context(), c.Param("id"), req, m)
	if err != nil {
		response.Error(c, err)
		return
	}
	setVersionTag(c, record.Version)
	response.JSON(c, http.StatusOK, record, nil)
}

// RecordPayment godoc
// @Summary Record an enrollment payment
// @Tags Enrollments
// @Accept json
// @Produce json
// @Param id path string true "Enrollment ID"
// @Param payload body service.RecordPaymentRequest true "Payment"
// @Success 201 {object} response.Envelope
// @Router /enrollments/{id}/payments [post]
func (h *EnrollmentHandler) RecordPayment(c *gin.Context) {
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
// @Summary Receipt of an enrollment payment
// @Tags Enrollments
// @Produce json
// @Produce application/pdf
// @Param id path string true "Enrollment ID"
// @Param index path int true "Zero based payment index"
// @Param format query string false "json (default) or pdf"
// @Success 200 {object} response.Envelope
// @Router /enrollments/{id}/payments/{index}/receipt [get]
func (h *EnrollmentHandler) Receipt(c *gin.Context) {
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
	writeReceipt(c, h.receipts, receipt)
}

// GPA godoc
// @Summary Grade point average of a student
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/gpa [get]
func (h *EnrollmentHandler) GPA(c *gin.Context) {
	view, cacheHit, err := h.service.GPA(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	response.JSON(c, http.StatusOK, view, nil, middleware.ExtractMeta(c))
}

func writeReceipt(c *gin.Context, renderer receiptRenderer, receipt *models.Receipt) {
	if c.Query("format") != "pdf" {
		response.JSON(c, http.StatusOK, receipt, nil)
		return
	}
	payload, err := renderer.RenderPDF(*receipt)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, service.ReceiptFilename(*receipt), "application/pdf", payload)
}
