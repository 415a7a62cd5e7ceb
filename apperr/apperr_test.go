package apperr

import (
	"net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestStatusAndMessage(t *testing.T) {
	err := errors.Wrap(NotFound("Product not found"), "scan")
	assert.Equal(t, http.StatusNotFound, StatusOf(err))
	assert.Equal(t, "Product not found", MessageOf(err))
}

func TestInternalHidesCause(t *testing.T) {
	err := Internal(errors.New("connection refused"), "Failed to save cart")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, "Failed to save cart", MessageOf(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestUntypedError(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, "Internal server error", MessageOf(err))
}

func TestWrapKeepsTypedErrors(t *testing.T) {
	assert.NoError(t, Wrap(nil, "x"))

	nf := NotFound("gone")
	assert.Same(t, nf, Wrap(nf, "x"))

	err := Wrap(errors.New("boom"), "Failed")
	assert.Equal(t, http.StatusInternalServerError, StatusOf(err))
	assert.Equal(t, "Failed", MessageOf(err))
}
