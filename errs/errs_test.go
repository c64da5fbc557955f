package errs

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusMapping(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:        http.StatusBadRequest,
		CodeNotFound:          http.StatusNotFound,
		CodeStateConflict:     http.StatusConflict,
		CodeCapacity:          http.StatusForbidden,
		CodeInsufficientFunds: http.StatusPaymentRequired,
		CodeConcurrency:       http.StatusConflict,
		CodeForbidden:         http.StatusForbidden,
		CodeUnauthorized:      http.StatusUnauthorized,
		CodeInternal:          http.StatusInternalServerError,
	}
	for code, want := range cases {
		assert.Equal(t, want, HTTPStatus(code), "code %s", code)
	}
	assert.Equal(t, http.StatusInternalServerError, HTTPStatus(Code("MYSTERY")))
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("disk on fire")
	err := Wrap(CodeInternal, cause, "DB error saving account")

	assert.Equal(t, CodeInternal, CodeOf(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "DB error saving account")
	assert.Contains(t, err.Error(), "disk on fire")
}

func TestCodeOfUnwrapsNested(t *testing.T) {
	inner := New(CodeInsufficientFunds, "balance too low")
	outer := fmt.Errorf("purchase failed: %w", inner)

	assert.Equal(t, CodeInsufficientFunds, CodeOf(outer))
	assert.True(t, Is(outer, CodeInsufficientFunds))
	assert.False(t, Is(outer, CodeNotFound))
}

func TestCodeOfPlainError(t *testing.T) {
	assert.Equal(t, CodeInternal, CodeOf(errors.New("plain")))
	assert.Nil(t, As(errors.New("plain")))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(CodeConcurrency))
	assert.False(t, Retryable(CodeStateConflict))
	assert.False(t, Retryable(CodeInternal))
}
