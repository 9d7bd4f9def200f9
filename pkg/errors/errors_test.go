package errors

import (
	stderrors "errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapDomainError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{"nil", nil, "", 0},
		{"app error passes through", ErrConflict("stale"), CodeConflict, http.StatusConflict},
		{"not found", stderrors.New("inventory record not found"), CodeNotFound, http.StatusNotFound},
		{"version conflict", stderrors.New("version conflict on record r1"), CodeConflict, http.StatusConflict},
		{"insufficient", stderrors.New("insufficient stock: requested 5, available 2"), CodeUnprocessable, http.StatusUnprocessableEntity},
		{"negative", stderrors.New("negative quantity: 10 - 12"), CodeUnprocessable, http.StatusUnprocessableEntity},
		{"invalid", stderrors.New("invalid transaction type \"GIFT\""), CodeValidationError, http.StatusBadRequest},
		{"fallback", stderrors.New("boom"), CodeInternalError, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapDomainError(tt.err)
			if tt.err == nil {
				assert.Nil(t, got)
				return
			}
			assert.Equal(t, tt.wantCode, got.Code)
			assert.Equal(t, tt.wantStatus, got.HTTPStatus)
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	cause := stderrors.New("driver failure")
	appErr := ErrInternal("").Wrap(cause)

	assert.True(t, stderrors.Is(appErr, cause))
	assert.Contains(t, appErr.Error(), "driver failure")

	got, ok := AsAppError(appErr)
	assert.True(t, ok)
	assert.Equal(t, CodeInternalError, got.Code)
}

func TestWithDetail(t *testing.T) {
	appErr := ErrNotFoundWithID("inventory record", "r-42").WithDetail("itemKind", "leather")

	assert.Equal(t, "r-42", appErr.Details["id"])
	assert.Equal(t, "leather", appErr.Details["itemKind"])
}
