package pipelineerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewCheckFailureMessage(t *testing.T) {
	err := NewCheckFailure("file %q failed compliance suite", "foo.nc")
	assert.Equal(t, CheckFailure, err.Kind)
	assert.Contains(t, err.Error(), "foo.nc")
	assert.True(t, err.IsCheckFailure())
	assert.False(t, err.IsTransient())
}

func TestWrapSinkTransientPreservesCause(t *testing.T) {
	cause := errors.New("connection reset")
	err := WrapSinkTransient(cause)
	assert.True(t, err.IsTransient())
	assert.Equal(t, cause, errors.Unwrap(err))
	assert.ErrorIs(t, err, cause)
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.Nil(t, WrapSinkPermanent(nil))
}

func TestIsHelperUnwrapsChain(t *testing.T) {
	base := NewInvariantViolation("re-entrant Execute")
	wrapped := errors.New("outer: " + base.Error())
	chained := fmt.Errorf("outer: %w", base)

	assert.True(t, Is(base, InvariantViolation))
	assert.False(t, Is(wrapped, InvariantViolation))
	assert.True(t, Is(chained, InvariantViolation))
}

func TestKindStringMatchesTaxonomyNames(t *testing.T) {
	assert.Equal(t, "sink_transient", SinkTransient.String())
	assert.Equal(t, "invariant_violation", InvariantViolation.String())
}
