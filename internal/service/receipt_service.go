package service

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/uphsl-enrollment-api/internal/models"
	"github.com/noah-isme/uphsl-enrollment-api/pkg/export"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

// ReceiptService renders receipts and statements into downloadable documents.
type ReceiptService struct {
	pdf    *export.ReceiptPDF
	csv    *export.CSVExporter
	logger *zap.Logger
}

// NewReceiptService constructs ReceiptService for the named institution.
func NewReceiptService(institution string, logger *zap.Logger) *ReceiptService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReceiptService{pdf: export.NewReceiptPDF(institution), csv: export.NewCSVExporter(), logger: logger}
}

// ReceiptFilename names the PDF of a receipt.
func ReceiptFilename(receipt models.Receipt) string {
	return fmt.Sprintf("receipt-%s.pdf", receipt.ReceiptNumber)
}

// StatementFilename names the CSV statement of a record.
func StatementFilename(record models.FinancialRecord) string {
	return fmt.Sprintf("statement-%s-%s-%s.csv", record.StudentID, record.AcademicYear, record.Semester)
}

// RenderPDF renders one receipt as an A5 PDF.
func (s *ReceiptService) RenderPDF(receipt models.Receipt) ([]byte, error) {
	payload, err := s.pdf.Render(receipt)
	if err != nil {
		s.logger.Error("render receipt pdf", zap.String("receipt", receipt.ReceiptNumber), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render receipt")
	}
	return payload, nil
}

// StatementCSV lists the payments of a recomputed record with running balances.
func (s *ReceiptService) StatementCSV(record models.FinancialRecord) ([]byte, error) {
	payload, err := s.csv.Render(export.StatementDataset(record))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render statement")
	}
	return payload, nil
}
