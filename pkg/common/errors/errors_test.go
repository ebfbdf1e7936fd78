package errors

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"invalid input keeps message", Wrap(ErrInvalidInput, "bad target"), http.StatusBadRequest, "bad target: invalid input"},
		{"unprocessable keeps message", Wrap(ErrUnprocessable, "negation"), http.StatusUnprocessableEntity, "negation: unprocessable program"},
		{"not found", Wrapf(ErrNotFound, "report %s", "x"), http.StatusNotFound, "Resource not found"},
		{"unauthorized", ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
		{"unknown", New("boom"), http.StatusInternalServerError, "Internal server error"},
		{"app error passes through", NewAppError(http.StatusTeapot, "tea", nil), http.StatusTeapot, "tea"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.message, got.Message)
		})
	}
	assert.Nil(t, MapError(nil))
}

func TestHintsSurviveWrapping(t *testing.T) {
	err := Wrap(WithHint(Wrap(ErrInvalidInput, "unknown seed policy"), "valid policies: merge"), "load config")
	assert.True(t, Is(err, ErrInvalidInput))
	assert.Equal(t, []string{"valid policies: merge"}, GetAllHints(err))
}
