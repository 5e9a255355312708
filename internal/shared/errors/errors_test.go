package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "not_found: plan not found", NewNotFoundError("plan not found").Error())
	assert.Equal(t, "validation_error: bad features (page_access.invoices)",
		NewValidationError("bad features", "page_access.invoices").Error())
}

func TestGetAppError_Wrapped(t *testing.T) {
	err := fmt.Errorf("update plan: %w", NewConflictError("slug taken"))

	appErr := GetAppError(err)
	if assert.NotNil(t, appErr) {
		assert.Equal(t, http.StatusConflict, appErr.Code)
	}
	assert.False(t, IsNotFoundError(err))
	assert.Nil(t, GetAppError(fmt.Errorf("plain")))
}

func TestIsDuplicateError(t *testing.T) {
	assert.True(t, IsDuplicateError(fmt.Errorf("Error 1062: Duplicate entry 'pro' for key 'slug'")))
	assert.True(t, IsDuplicateError(fmt.Errorf("UNIQUE constraint failed: plans.slug")))
	assert.False(t, IsDuplicateError(nil))
	assert.False(t, IsDuplicateError(fmt.Errorf("connection refused")))
}
