package service

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/uphsl-enrollment-api/internal/identifier"
	"github.com/noah-isme/uphsl-enrollment-api/internal/ledger"
	"github.com/noah-isme/uphsl-enrollment-api/internal/repository"
	appErrors "github.com/noah-isme/uphsl-enrollment-api/pkg/errors"
)

// Mutation carries the acting user of a write and, when ExpectedVersion is
// positive, the record version the caller last read (If-Match).
type Mutation struct {
	ActorID         string
	ExpectedVersion int
}

func (m Mutation) check(current int) error {
	if m.ExpectedVersion > 0 && m.ExpectedVersion != current {
		return appErrors.Clone(appErrors.ErrStaleRecord, fmt.Sprintf("record is at version %d", current))
	}
	return nil
}

func lookupError(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, what+" not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load "+what)
}

func saveError(err error, what string) error {
	if errors.Is(err, repository.ErrVersionConflict) {
		return appErrors.Clone(appErrors.ErrStaleRecord, what+" was modified concurrently")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save "+what)
}

// domainError translates ledger and identifier sentinels into API errors.
func domainError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrPaymentNotFound):
		return appErrors.ErrPaymentNotFound
	case errors.Is(err, ledger.ErrScheduleConflict):
		return appErrors.Wrap(err, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, err.Error())
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrNegativeFee),
		errors.Is(err, ledger.ErrInvalidPercentage),
		errors.Is(err, ledger.ErrInvalidWeights),
		errors.Is(err, ledger.ErrInvalidSlot):
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	case errors.Is(err, identifier.ErrSequenceExhausted):
		return appErrors.ErrSequenceExhausted
	case errors.Is(err, identifier.ErrInvalidStudentID),
		errors.Is(err, identifier.ErrInvalidEmployeeID),
		errors.Is(err, identifier.ErrInvalidCampusCode),
		errors.Is(err, identifier.ErrEmailMismatch),
		errors.Is(err, identifier.ErrEnrollmentYearMismatch):
		return appErrors.Wrap(err, appErrors.ErrInvalidIdentifier.Code, appErrors.ErrInvalidIdentifier.Status, err.Error())
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, appErrors.ErrInternal.Message)
}

// validationError reports payload failures with the offending fields keyed by
// their JSON name and failed rule.
func validationError(err error, message string) error {
	appErr := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return appErr
	}
	fields := make(map[string]interface{}, len(fieldErrs))
	for _, fe := range fieldErrs {
		fields[fe.Field()] = fe.Tag()
	}
	return appErr.WithDetails(map[string]interface{}{"fields": fields})
}

func prerequisitesError(code string, missing []string) error {
	return appErrors.Clone(appErrors.ErrPrerequisitesUnmet,
		fmt.Sprintf("%s requires %s", code, strings.Join(missing, ", "))).
		WithDetails(map[string]interface{}{"subject": code, "missing": missing})
}
