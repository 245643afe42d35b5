package domain

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/utafrali/TradeCatalog/pkg/errors"
)

// Sentinels for catalog failures. Each AppError below wraps one of these
// together with the matching apperrors sentinel.
var (
	ErrMissingRequiredField = errors.New("missing required field")
	ErrInvalidQuantity      = errors.New("invalid quantity")
	ErrPriceOrdering        = errors.New("price ordering violation")
	ErrOwnership            = errors.New("ownership violation")
	ErrProductDeleted       = errors.New("product is deleted")
)

// MissingRequiredField reports the first absent or blank required field.
func MissingRequiredField(field string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "MISSING_REQUIRED_FIELD",
		Message: fmt.Sprintf("%s is required", field),
		Field:   field,
		Status:  http.StatusBadRequest,
		Err:     errors.Join(apperrors.ErrInvalidInput, ErrMissingRequiredField),
	}
}

// InvalidQuantity reports a quantity field outside its allowed range.
func InvalidQuantity(field, message string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "INVALID_QUANTITY",
		Message: message,
		Field:   field,
		Status:  http.StatusBadRequest,
		Err:     errors.Join(apperrors.ErrInvalidInput, ErrInvalidQuantity),
	}
}

// PriceOrderingViolation reports a wholesale price above the given tier.
func PriceOrderingViolation(tier Tier) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "PRICE_ORDERING_VIOLATION",
		Message: fmt.Sprintf("%s > %s", TierWholesale, tier),
		Field:   string(tier),
		Status:  http.StatusUnprocessableEntity,
		Err:     errors.Join(apperrors.ErrUnprocessable, ErrPriceOrdering),
	}
}

// OwnershipViolation reports a caller acting on a product it may not touch.
func OwnershipViolation(message string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "OWNERSHIP_VIOLATION",
		Message: message,
		Status:  http.StatusForbidden,
		Err:     errors.Join(apperrors.ErrForbidden, ErrOwnership),
	}
}

// ProductNotFound hides everything about the product except the requested id.
func ProductNotFound(id string) *apperrors.AppError {
	return apperrors.NotFound("product", id)
}

// ProductDeleted rejects updates to a soft-deleted product.
func ProductDeleted(id string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "PRODUCT_DELETED",
		Message: fmt.Sprintf("product %s is deleted; restore it first", id),
		Status:  http.StatusConflict,
		Err:     errors.Join(apperrors.ErrConflict, ErrProductDeleted),
	}
}

// FailureKind labels err for metrics. Unknown errors are "other".
func FailureKind(err error) string {
	switch {
	case errors.Is(err, ErrMissingRequiredField):
		return "missing_required_field"
	case errors.Is(err, ErrInvalidQuantity):
		return "invalid_quantity"
	case errors.Is(err, ErrPriceOrdering):
		return "price_ordering_violation"
	case errors.Is(err, ErrOwnership):
		return "ownership_violation"
	case errors.Is(err, ErrProductDeleted):
		return "product_deleted"
	case errors.Is(err, apperrors.ErrNotFound):
		return "not_found"
	default:
		return "other"
	}
}
