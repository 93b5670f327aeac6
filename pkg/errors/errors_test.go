package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"unsupported language", fmt.Errorf("normalizing: %w", ErrUnsupportedLanguage), http.StatusBadRequest},
		{"invalid input", ErrInvalidInput, http.StatusBadRequest},
		{"fetch", fmt.Errorf("%w: status 404", ErrFetch), http.StatusBadGateway},
		{"storage", fmt.Errorf("%w: connection refused", ErrStorage), http.StatusServiceUnavailable},
		{"app error wins", New(ErrStorage, http.StatusConflict, "duplicate"), http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorUnwrap(t *testing.T) {
	err := Newf(ErrInvalidInput, http.StatusBadRequest, "field %s is required", "docs")
	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Equal(t, "invalid input: field docs is required", err.Error())
}
