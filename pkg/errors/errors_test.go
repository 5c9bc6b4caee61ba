package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError_Error(t *testing.T) {
	err := NewInputError("missing column", fmt.Errorf("readmitted"))
	assert.Equal(t, "INPUT: missing column: readmitted", err.Error())

	err = NewUsageError("transform before fit")
	assert.Equal(t, "USAGE: transform before fit", err.Error())
}

func TestIsType_WrappedChain(t *testing.T) {
	base := NewUsageError("row count mismatch")
	wrapped := fmt.Errorf("fit pipeline: %w", base)

	assert.True(t, IsType(wrapped, ErrorTypeUsage))
	assert.False(t, IsType(wrapped, ErrorTypeInput))
	assert.False(t, IsType(errors.New("plain"), ErrorTypeUsage))
	assert.False(t, IsType(nil, ErrorTypeUsage))
}

func TestIsType_NestedAppError(t *testing.T) {
	inner := NewUndefinedError("no positives")
	outer := NewInternalError("persist run", inner)

	assert.True(t, IsType(outer, ErrorTypeInternal))
	assert.True(t, IsType(outer, ErrorTypeUndefined))
}

func TestAppError_IsSentinel(t *testing.T) {
	sentinel := NewUndefinedError("no positive labels in population")
	err := fmt.Errorf("capture: %w", NewUndefinedError("no positive labels in population"))

	assert.True(t, errors.Is(err, sentinel))
	assert.False(t, errors.Is(err, NewUndefinedError("other")))
}
