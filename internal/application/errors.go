package application

import (
	stderrors "errors"

	"github.com/leathercraft/inventory-service/internal/domain"
	"github.com/leathercraft/inventory-service/pkg/errors"
)

// toAppError translates engine and repository errors for the API. Errors
// that are already AppErrors pass through.
func toAppError(err error) *errors.AppError {
	if appErr, ok := errors.AsAppError(err); ok {
		return appErr
	}

	var (
		verr *domain.ValidationError
		nerr *domain.NegativeQuantityError
		ierr *domain.InsufficientStockError
		cerr *domain.ConcurrencyConflictError
	)

	switch {
	case stderrors.As(err, &verr):
		appErr := errors.ErrValidation(verr.Error()).Wrap(err)
		if verr.Field != "" {
			appErr.WithDetail(verr.Field, verr.Reason)
		}
		return appErr
	case stderrors.As(err, &nerr):
		return errors.ErrUnprocessable(nerr.Error()).Wrap(err).
			WithDetail("current", nerr.Current.String()).
			WithDetail("delta", nerr.Delta.String())
	case stderrors.As(err, &ierr):
		return errors.ErrUnprocessable(ierr.Error()).Wrap(err).
			WithDetail("requested", ierr.Requested.String()).
			WithDetail("available", ierr.Available.String())
	case stderrors.As(err, &cerr):
		return errors.ErrConflict(cerr.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrRecordExists):
		return errors.ErrConflict(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrRecordInactive):
		return errors.ErrUnprocessable(err.Error()).Wrap(err)
	case stderrors.Is(err, domain.ErrRecordNotFound):
		return errors.ErrNotFound("inventory record").Wrap(err)
	default:
		return errors.ErrInternal("").Wrap(err)
	}
}

// rejectionReason labels engine refusals for metrics
func rejectionReason(err error) string {
	switch {
	case stderrors.Is(err, domain.ErrValidation):
		return "validation"
	case stderrors.Is(err, domain.ErrNegativeQuantity):
		return "negative_quantity"
	case stderrors.Is(err, domain.ErrInsufficientStock):
		return "insufficient_stock"
	case stderrors.Is(err, domain.ErrRecordInactive):
		return "inactive"
	default:
		return ""
	}
}
