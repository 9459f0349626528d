package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetCode(t *testing.T) {
	assert.Equal(t, Code(""), GetCode(nil))
	assert.Equal(t, CodeNotFound, GetCode(New(CodeNotFound, "employee not found")))
	assert.Equal(t, CodeConflict, GetCode(fmt.Errorf("save: %w", New(CodeConflict, "stale"))))
	assert.Equal(t, CodeInternal, GetCode(errors.New("boom")))
}

func TestWrapKeepsSentinel(t *testing.T) {
	sentinel := errors.New("cycle detected")
	err := fmt.Errorf("assign: %w", Wrap(CodeRuleViolation, "CYCLE_DETECTED", sentinel, "would create a cycle"))

	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, CodeRuleViolation, GetCode(err))
	assert.Equal(t, "CYCLE_DETECTED", GetReason(err))
	assert.Equal(t, "assign: would create a cycle", err.Error())
}

func TestGetReasonDefaults(t *testing.T) {
	assert.Equal(t, "RESOURCE_NOT_FOUND", GetReason(New(CodeNotFound, "missing")))
	assert.Equal(t, "INTERNAL_SERVER_ERROR", GetReason(errors.New("boom")))
	assert.Equal(t, "", GetReason(nil))
}

func TestValidationDetails(t *testing.T) {
	err := fmt.Errorf("create: %w", Validation("validation failed", []string{"first_name is required"}))

	assert.Equal(t, CodeValidation, GetCode(err))
	assert.Equal(t, []string{"first_name is required"}, GetDetails(err))
	assert.Nil(t, GetDetails(errors.New("plain")))
}
