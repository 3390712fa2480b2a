package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/uphsl-enrollment-api/internal/dto"
	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/internal/service"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

type fakeFinancialSrv struct {
	record   *models.FinancialRecord
	receipt  *models.Receipt
	summary  *dto.FinancialSummary
	cacheHit bool
	err      error

	lastMutation    service.Mutation
	lastDiscounts   models.Discounts
	lastScholarship models.Scholarship
	refreshed       int
}

func (f *fakeFinancialSrv) Create(context.Context, service.CreateFinancialRecordRequest) (*models.FinancialRecord, error) {
	return f.record, f.err
}

func (f *fakeFinancialSrv) Get(context.Context, string) (*models.FinancialRecord, error) {
	return f.record, f.err
}

func (f *fakeFinancialSrv) ListByStudent(context.Context, string) ([]models.FinancialRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.FinancialRecord{*f.record}, nil
}

func (f *fakeFinancialSrv) UpdateFees(_ context.Context, _ string, _ service.UpdateFinancialFeesRequest, m service.Mutation) (*models.FinancialRecord, error) {
	f.lastMutation = m
	return f.record, f.err
}

func (f *fakeFinancialSrv) SetDiscounts(_ context.Context, _ string, discounts models.Discounts, m service.Mutation) (*models.FinancialRecord, error) {
	f.lastDiscounts = discounts
	f.lastMutation = m
	return f.record, f.err
}

func (f *fakeFinancialSrv) SetScholarship(_ context.Context, _ string, scholarship models.Scholarship, m service.Mutation) (*models.FinancialRecord, error) {
	f.lastScholarship = scholarship
	f.lastMutation = m
	return f.record, f.err
}

func (f *fakeFinancialSrv) RecordPayment(_ context.Context, _ string, _ service.RecordPaymentRequest, m service.Mutation) (*models.FinancialRecord, *models.Receipt, error) {
	f.lastMutation = m
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.record, f.receipt, nil
}

func (f *fakeFinancialSrv) Receipt(context.Context, string, int) (*models.Receipt, error) {
	return f.receipt, f.err
}

func (f *fakeFinancialSrv) RefreshStatus(context.Context, string) (*models.FinancialRecord, error) {
	f.refreshed++
	return f.record, f.err
}

func (f *fakeFinancialSrv) Summary(context.Context, string) (*dto.FinancialSummary, bool, error) {
	return f.summary, f.cacheHit, f.err
}

func sampleFinancialRecord() *models.FinancialRecord {
	return &models.FinancialRecord{
		ID:           "fin-1",
		StudentID:    "m25-1470-100",
		AcademicYear: "2025-2026",
		Semester:     models.SemesterFirst,
		Status:       models.FinancialStatusPending,
		Version:      2,
	}
}

func TestFinancialHandlerCreate(t *testing.T) {
	h := NewFinancialHandler(&fakeFinancialSrv{record: sampleFinancialRecord()}, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/financial-records", map[string]string{"student_id": "m25-1470-100"})

	h.Create(c)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, `"2"`, rec.Header().Get("ETag"))
	assert.Equal(t, "fin-1", decodeEnvelope(t, rec).Data["id"])
}

func TestFinancialHandlerSetDiscountsBindsArray(t *testing.T) {
	srv := &fakeFinancialSrv{record: sampleFinancialRecord()}
	h := NewFinancialHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPut, "/financial-records/fin-1/discounts", []map[string]string{
		{"type": "early_bird", "percentage": "10"},
		{"type": "sibling", "amount": "500"},
	})
	c.Params = gin.Params{{Key: "id", Value: "fin-1"}}
	c.Request.Header.Set("If-Match", `"2"`)

	h.SetDiscounts(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, srv.lastDiscounts, 2)
	require.NotNil(t, srv.lastDiscounts[0].Percentage)
	assert.True(t, decimal.NewFromInt(10).Equal(*srv.lastDiscounts[0].Percentage))
	assert.True(t, decimal.NewFromInt(500).Equal(srv.lastDiscounts[1].Amount))
	assert.Equal(t, 2, srv.lastMutation.ExpectedVersion)
}

func TestFinancialHandlerSetScholarship(t *testing.T) {
	srv := &fakeFinancialSrv{record: sampleFinancialRecord()}
	h := NewFinancialHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPut, "/financial-records/fin-1/scholarship", map[string]interface{}{
		"type":     "academic",
		"coverage": map[string]string{"tuition": "100"},
	})
	c.Params = gin.Params{{Key: "id", Value: "fin-1"}}

	h.SetScholarship(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "academic", srv.lastScholarship.Type)
	assert.True(t, decimal.NewFromInt(100).Equal(srv.lastScholarship.Coverage.Tuition))
}

func TestFinancialHandlerStaleVersion(t *testing.T) {
	srv := &fakeFinancialSrv{err: appErrors.Clone(appErrors.ErrStaleRecord, "record version 1 is stale")}
	h := NewFinancialHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/financial-records/fin-1/payments", map[string]string{"amount": "100", "method": "CASH"})
	c.Params = gin.Params{{Key: "id", Value: "fin-1"}}
	c.Request.Header.Set("If-Match", `"1"`)

	h.RecordPayment(c)

	assert.Equal(t, http.StatusConflict, rec.Code)
	envelope := decodeEnvelope(t, rec)
	require.NotNil(t, envelope.Error)
	assert.Equal(t, appErrors.ErrStaleRecord.Code, envelope.Error.Code)
}

func TestFinancialHandlerStatementCSV(t *testing.T) {
	srv := &fakeFinancialSrv{record: sampleFinancialRecord()}
	h := NewFinancialHandler(srv, stubRenderer{csv: []byte("date,reference\n")})
	c, rec := newTestContext(http.MethodGet, "/financial-records/fin-1/statement.csv", nil)
	c.Params = gin.Params{{Key: "id", Value: "fin-1"}}

	h.Statement(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "statement-m25-1470-100-2025-2026-FIRST.csv")
	assert.Equal(t, "date,reference\n", rec.Body.String())
}

func TestFinancialHandlerRefreshStatus(t *testing.T) {
	record := sampleFinancialRecord()
	record.Status = models.FinancialStatusOverdue
	srv := &fakeFinancialSrv{record: record}
	h := NewFinancialHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodPost, "/financial-records/fin-1/refresh-status", nil)
	c.Params = gin.Params{{Key: "id", Value: "fin-1"}}

	h.RefreshStatus(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, srv.refreshed)
	assert.Equal(t, string(models.FinancialStatusOverdue), decodeEnvelope(t, rec).Data["status"])
}

func TestFinancialHandlerSummaryCacheMeta(t *testing.T) {
	srv := &fakeFinancialSrv{summary: &dto.FinancialSummary{StudentID: "m25-1470-100"}}
	h := NewFinancialHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodGet, "/students/m25-1470-100/financial-summary", nil)
	c.Params = gin.Params{{Key: "id", Value: "m25-1470-100"}}

	h.Summary(c)

	assert.Equal(t, http.StatusOK, rec.Code)
	envelope := decodeEnvelope(t, rec)
	assert.Equal(t, false, envelope.Meta["cache_hit"])
	assert.Equal(t, "m25-1470-100", envelope.Data["student_id"])
}

func TestFinancialHandlerNotFound(t *testing.T) {
	srv := &fakeFinancialSrv{err: appErrors.Clone(appErrors.ErrNotFound, "financial record not found")}
	h := NewFinancialHandler(srv, stubRenderer{})
	c, rec := newTestContext(http.MethodGet, "/financial-records/missing", nil)
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.Get(c)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
