package errs

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

var errStep = New("step failed")

func TestMarkKeepsCause(t *testing.T) {
	err := Mark(Wrap(context.DeadlineExceeded, "create order"), errStep)

	assert.True(t, Is(err, errStep))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Contains(t, err.Error(), "create order")
}

func TestNilHandling(t *testing.T) {
	assert.NoError(t, Wrap(nil, "x"))
	assert.NoError(t, Wrapf(nil, "x %d", 1))
	assert.Equal(t, errStep, Mark(nil, errStep))
}
