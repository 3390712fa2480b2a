package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uphsl-enrollment-api/internal/dto"
	"github.com/noah-isme/uphsl-enrollment-api/internal/middleware"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

type responseEnvelope struct {
	Data  map[string]interface{} `json:"data"`
	Meta  map[string]interface{} `json:"meta"`
	Error *struct {
		Code string `json:"code"`
	} `json:"error"`
}

type fakeEnrollmentSrv struct {
	record   *models.EnrollmentRecord
	receipt  *models.Receipt
	gpa      *dto.GPAView
	cacheHit bool
	err      error

	lastMutation service.Mutation
	lastFilter   models.EnrollmentFilter
	lastIndex    int
	lastSubject  string
	lastPayment  service.RecordPaymentRequest
	lastDecision service.EnrollmentDecisionRequest
	decisions    []string
	submitted    int
}

func (f *fakeEnrollmentSrv) List(_ context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentRecord, *models.Pagination, error) {
	f.lastFilter = filter
	if f.err != nil {
		return nil, nil, f.err
	}
	return []models.EnrollmentRecord{*f.record}, &models.Pagination{Page: 1, PageSize: 20, TotalCount: 1}, nil
}

func (f *fakeEnrollmentSrv) Get(context.Context, string) (*models.EnrollmentRecord, error) {
	return f.record, f.err
}

func (f *fakeEnrollmentSrv) Submit(context.Context, service.SubmitEnrollmentRequest) (*models.EnrollmentRecord, error) {
	f.submitted++
	return f.record, f.err
}

func (f *fakeEnrollmentSrv) Approve(_ context.Context, _ string, req service.EnrollmentDecisionRequest, m service.Mutation) (*models.EnrollmentRecord, error) {
	f.decisions = append(f.decisions, "approve")
	f.lastDecision = req
	f.lastMutation = m
	return f.record, f.err
}

func (f *fakeEnrollmentSrv) Reject(_ context.Context, _ string, req service.EnrollmentDecisionRequest, m service.Mutation) (*models.EnrollmentRecord, error) {
	f.decisions = append(f.decisions, "reject")
	f.lastDecision = req
	f.lastMutation = m
	return f.record, f.err
}

func (f *fakeEnrollmentSrv) UpdateSubjectStatus(_ context.Context, _, subjectID string, _ service.UpdateSubjectStatusRequest, m service.Mutation) (*models.EnrollmentRecord, error) {
	f.lastSubject = subjectID
	f.lastMutation = m
	return f.record, f.err
}

func (f *fakeEnrollmentSrv) UpdateGrades(_ context.Context, _, subjectID string, _ models.GradeComponents, m service.Mutation) (*models.EnrollmentRecord, error) {
	f.lastSubject = subjectID
	f.lastMutation = m
	return f.record, f.err
}

func (f *fakeEnrollmentSrv) UpdateFees(_ context.Context, _ string, _ service.UpdateEnrollmentFeesRequest, m service.Mutation) (*models.EnrollmentRecord, error) {
	f.lastMutation = m
	return f.record, f.err
}

func (f *fakeEnrollmentSrv) RecordPayment(_ context.Context, _ string, req service.RecordPaymentRequest, m service.Mutation) (*models.EnrollmentRecord, *models.Receipt, error) {
	f.lastPayment = req
	f.lastMutation = m
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.record, f.receipt, nil
}

func (f *fakeEnrollmentSrv) Receipt(_ context.Context, _ string, index int) (*models.Receipt, error) {
	f.lastIndex = index
	return f.receipt, f.err
}

func (f *fakeEnrollmentSrv) GPA(context.Context, string) (*dto.GPAView, bool, error) {
	return f.gpa, f.cacheHit, f.err
}

type stubRenderer struct {
	pdf []byte
	csv []byte
	err error
}

func (s stubRenderer) RenderPDF(models.Receipt) ([]byte, error) { return s.pdf, s.err }

func (s stubRenderer) StatementCSV(models.FinancialRecord) ([]byte, error) { return s.csv, s.err }

func newTestContext(method, target string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)

	var payload []byte
	if body != nil {
		payload, _ = json.Marshal(body)
	}
	c.Request = httptest.NewRequest(method, target, bytes.NewReader(payload))
	if body != nil {
		c.Request.Header.Set("Content-Type", "application/json")
	}
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: "registrar-1", Role: models.RoleRegistrar})
	return c, rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) responseEnvelope {
	t.Helper()
	var envelope responseEnvelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func sampleEnrollment() *models.EnrollmentRecord {
	return &models.EnrollmentRecord{
		ID:           "enr-1",
		StudentID:    "m25-1470-100",
		AcademicYear: "2025-2026",
		Semester:     models.SemesterFirst,
		Status:       models.EnrollmentStatusPending,
		Version:      3,
	}
}

func TestEnrollmentHandlerGetSetsETag(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{record: sampleEnrollment()}, stubRenderer{})
	c, rec := newTestContext(http.MethodGet, "/enrollments/enr-1", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	h.Get(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `"3"`, rec.Header().Get("ETag"))
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, "enr-1", envelope.Data["id"])
}

func TestEnrollmentHandlerListParsesFilter(t *testing.T) {
	srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodGet, "/enrollments?studentId=m25-1470-100&semester=FIRST&status=PENDING&page=2&limit=5", nil)

	h.List(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "m25-1470-100", srv.lastFilter.StudentID)
	assert.Equal(t, models.SemesterFirst, srv.lastFilter.Semester)
	assert.Equal(t, models.EnrollmentStatusPending, srv.lastFilter.Status)
	assert.Equal(t, 2, srv.lastFilter.Page)
	assert.Equal(t, 5, srv.lastFilter.PageSize)
}

func TestEnrollmentHandlerApprovePassesIfMatch(t *testing.T) {
	srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/enrollments/enr-1/approve", map[string]string{"remarks": "cleared"})
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	c.Request.Header.Set("If-Match", `W/"3"`)

	h.Approve(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"approve"}, srv.decisions)
	assert.Equal(t, 3, srv.lastMutation.ExpectedVersion)
	assert.Equal(t, "registrar-1", srv.lastMutation.ActorID)
	assert.Equal(t, "cleared", srv.lastDecision.Remarks)
}

func TestEnrollmentHandlerRejectWithoutBody(t *testing.T) {
	srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/enrollments/enr-1/reject", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	h.Reject(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"reject"}, srv.decisions)
	assert.Zero(t, srv.lastMutation.ExpectedVersion)
}

func TestEnrollmentHandlerRejectsMalformedIfMatch(t *testing.T) {
	srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/enrollments/enr-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}
	c.Request.Header.Set("If-Match", `"abc"`)

	h.Approve(c)

	assert.Equal(t, http.StatusPreconditionFailed, rec.Code)
	assert.Empty(t, srv.decisions)
}

func TestEnrollmentHandlerMapsInvalidTransition(t *testing.T) {
	srv := &fakeEnrollmentSrv{err: appErrors.Clone(appErrors.ErrInvalidTransition, "enrollment already decided")}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/enrollments/enr-1/approve", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	h.Approve(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrInvalidTransition.Code, envelope.Error.Code)
}

func TestEnrollmentHandlerUpdateGradesUsesSubjectParam(t *testing.T) {
	srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPut, "/enrollments/enr-1/subjects/sub-9/grades", map[string]float64{"midterm": 80})
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}, {Key: "subjectId", Value: "sub-9"}}

	h.UpdateGrades(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sub-9", srv.lastSubject)
}

func TestEnrollmentHandlerRecordPayment(t *testing.T) {
	record := sampleEnrollment()
	record.Version = 4
	srv := &fakeEnrollmentSrv{
		record:  record,
		receipt: &models.Receipt{ReceiptNumber: "OR-2025-000000000001", PaymentIndex: 0},
	}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/enrollments/enr-1/payments", map[string]string{"amount": "1500.00", "method": "CASH"})
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}}

	h.RecordPayment(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `"4"`, rec.Header().Get("ETag"))
	assert.True(t, decimal.RequireFromString("1500").Equal(srv.lastPayment.Amount))
	envelope := decodeEnvelope(t, rec)
	receipt, ok := envelope.Data["receipt"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "OR-2025-000000000001", receipt["receipt_number"])
}

func TestEnrollmentHandlerRecordPaymentInvalidJSON(t *testing.T) {
	h := NewEnrollmentHandler(&fakeEnrollmentSrv{}, stubRenderer{})
	gin.SetMode(gin.TestMode)
	rec := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(rec)
	c.Request = httptest.NewRequest(http.MethodPost, "/enrollments/enr-1/payments", bytes.NewBufferString("{"))
	c.Request.Header.Set("Content-Type", "application/json")

	h.RecordPayment(c)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestEnrollmentHandlerReceiptFormats(t *testing.T) {
	srv := &fakeEnrollmentSrv{receipt: &models.Receipt{ReceiptNumber: "OR-2025-000000000007", PaymentIndex: 1}}
	h := NewEnrollmentHandler(srv, stubRenderer{pdf: []byte("%PDF-1.3")})

	c, rec := newTestContext(http.MethodGet, "/enrollments/enr-1/payments/1/receipt", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}, {Key: "index", Value: "1"}}
	h.Receipt(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, srv.lastIndex)
	assert.Equal(t, "OR-2025-000000000007", decodeEnvelope(t, rec).Data["receipt_number"])

	c, rec = newTestContext(http.MethodGet, "/enrollments/enr-1/payments/1/receipt?format=pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}, {Key: "index", Value: "1"}}
	h.Receipt(c)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "receipt-OR-2025-000000000007.pdf")
	assert.Equal(t, "%PDF-1.3", rec.Body.String())
}

func TestEnrollmentHandlerReceiptBadIndex(t *testing.T) {
	srv := &fakeEnrollmentSrv{}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodGet, "/enrollments/enr-1/payments/-1/receipt", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}, {Key: "index", Value: "-1"}}

	h.Receipt(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEnrollmentHandlerReceiptRenderFailure(t *testing.T) {
	srv := &fakeEnrollmentSrv{receipt: &models.Receipt{ReceiptNumber: "OR-1"}}
	h := NewEnrollmentHandler(srv, stubRenderer{err: errors.New("font missing")})
	c, rec := newTestContext(http.MethodGet, "/enrollments/enr-1/payments/0/receipt?format=pdf", nil)
	c.Params = gin.Params{{Key: "id", Value: "enr-1"}, {Key: "index", Value: "0"}}

	h.Receipt(c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestEnrollmentHandlerGPAReportsCacheHit(t *testing.T) {
	srv := &fakeEnrollmentSrv{gpa: &dto.GPAView{StudentID: "m25-1470-100", GPA: 1.75}, cacheHit: true}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodGet, "/students/m25-1470-100/gpa", nil)
	c.Params = gin.Params{{Key: "id", Value: "m25-1470-100"}}

	h.GPA(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, true, envelope.Meta["cache_hit"])
	assert.Equal(t, 1.75, envelope.Data["gpa"])
}

func asStudent(c *gin.Context, studentID string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: studentID, Role: models.RoleStudent})
}

func TestEnrollmentHandlerSubmitByStudent(t *testing.T) {
	srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/enrollments", map[string]interface{}{
		"student_id": "m25-1470-100", "year_level": 1,
		"subjects": []map[string]interface{}{{"subject_id": "sub-1", "section": "A"}},
	})
	asStudent(c, "M25-1470-100")

	h.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, srv.submitted)
}

func TestEnrollmentHandlerSubmitForAnotherStudent(t *testing.T) {
	srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/enrollments", map[string]interface{}{
		"student_id": "m25-1470-101", "year_level": 1,
		"subjects": []map[string]interface{}{{"subject_id": "sub-1", "section": "A"}},
	})
	asStudent(c, "m25-1470-100")

	h.Submit(c)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, srv.submitted)
}

func TestEnrollmentHandlerSubmitStudentCannotSetFees(t *testing.T) {
	for name, field := range map[string]map[string]interface{}{
		"discount":    {"discount": "100"},
		"tuition":     {"tuition_fee": "0.01"},
		"scholarship": {"scholarship_type": "ACADEMIC"},
	} {
		t.Run(name, func(t *testing.T) {
			srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
			h := NewEnrollmentHandler(srv, stubRenderer{})
			body := map[string]interface{}{
				"student_id": "m25-1470-100", "year_level": 1,
				"subjects": []map[string]interface{}{{"subject_id": "sub-1", "section": "A"}},
			}
			for k, v := range field {
				body[k] = v
			}
			c, rec := newTestContext(http.MethodPost, "/enrollments", body)
			asStudent(c, "m25-1470-100")

			h.Submit(c)

			assert.Equal(t, http.StatusForbidden, rec.Code)
			assert.Equal(t, 0, srv.submitted)
		})
	}
}

func TestEnrollmentHandlerSubmitByStaffKeepsFees(t *testing.T) {
	srv := &fakeEnrollmentSrv{record: sampleEnrollment()}
	h := NewEnrollmentHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/enrollments", map[string]interface{}{
		"student_id": "m25-1470-101", "year_level": 1, "discount": "10",
		"subjects": []map[string]interface{}{{"subject_id": "sub-1", "section": "A"}},
	})

	h.Submit(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, 1, srv.submitted)
}
