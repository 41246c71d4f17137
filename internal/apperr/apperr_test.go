package apperr

import (
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errSample = &Error{Message: "unknown period: %s"}

func TestFmtKeepsIdentity(t *testing.T) {
	err := errSample.Fmt("fortnight")

	assert.Equal(t, "unknown period: fortnight", err.Error())
	assert.ErrorIs(t, err, errSample)
}

func TestWrap(t *testing.T) {
	err := errSample.Fmt("x").Wrap(io.EOF)

	assert.Equal(t, "unknown period: x: EOF", err.Error())
	assert.ErrorIs(t, err, io.EOF)
	assert.ErrorIs(t, err, errSample)
	assert.False(t, errors.Is(err, &Error{Message: "something else"}))
}
