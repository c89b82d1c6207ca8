package dto

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetHTTPStatus(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeNotFound, http.StatusNotFound},
		{ErrCodeSignatureRejected, http.StatusUnauthorized},
		{ErrCodeConflict, http.StatusConflict},
		{ErrCodeInvalidState, http.StatusUnprocessableEntity},
		{ErrCodeGateway, http.StatusBadGateway},
		{"SOMETHING_ELSE", http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.status, GetHTTPStatus(tt.code), tt.code)
	}
}

func TestNormalizeErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeSignatureRejected, NormalizeErrorCode("SIGNATURE_REJECTED"))
	assert.Equal(t, ErrCodeConflict, NormalizeErrorCode("SUBSCRIPTION_EXISTS"))
	assert.Equal(t, ErrCodeGateway, NormalizeErrorCode("GATEWAY_AUTH_FAILED"))
	assert.Equal(t, ErrCodeInvalidInput, NormalizeErrorCode("INVALID_LINE_ITEM"))
	// Unknown codes pass through and resolve to 500.
	assert.Equal(t, "CUSTOM", NormalizeErrorCode("CUSTOM"))
}

func TestNewErrorResponseWithRequestID(t *testing.T) {
	resp := NewErrorResponseWithRequestID(ErrCodeNotFound, "Invoice not found", "req-1")
	assert.False(t, resp.Success)
	assert.Equal(t, ErrCodeNotFound, resp.Error.Code)
	assert.Equal(t, "req-1", resp.Error.RequestID)
}
