package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorClassString(t *testing.T) {
	tests := []struct {
		class    ErrorClass
		expected string
	}{
		{ErrorInvalid, "invalid"},
		{ErrorNotFound, "not_found"},
		{ErrorTypeMismatch, "type_mismatch"},
		{ErrorUnreachable, "unreachable"},
		{ErrorClass(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.class.String())
		})
	}
}

func TestWrapFormat(t *testing.T) {
	base := stderrors.New("boom")
	err := Wrap(base, "Block", "New", "argument validation")
	require.Error(t, err)
	assert.Equal(t, "Block.New: argument validation failed: boom", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrapNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapNotFound(nil, "c", "m", "a"))
	assert.NoError(t, WrapTypeMismatch(nil, "c", "m", "a"))
	assert.NoError(t, WrapUnreachable(nil, "c", "m", "a"))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		class ErrorClass
	}{
		{"invalid", WrapInvalid(ErrInvalidArgument, "Block", "New", "args"), ErrorInvalid},
		{"not_found", WrapNotFound(ErrEndpointNotFound, "Block", "Bind", "lookup"), ErrorNotFound},
		{"type_mismatch", WrapTypeMismatch(ErrTypeMismatch, "Block", "Bind", "datatype check"), ErrorTypeMismatch},
		{"unreachable", WrapUnreachable(ErrUnreachable, "socket", "New", "dispatch"), ErrorUnreachable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.class, Classify(tt.err))
		})
	}
}

func TestClassPredicates(t *testing.T) {
	invalid := WrapInvalid(ErrInvalidArgument, "c", "m", "a")
	notFound := WrapNotFound(ErrBlockNotFound, "c", "m", "a")
	mismatch := WrapTypeMismatch(ErrTypeMismatch, "c", "m", "a")
	unreachable := WrapUnreachable(ErrUnreachable, "c", "m", "a")

	assert.True(t, IsInvalid(invalid))
	assert.False(t, IsInvalid(notFound))

	assert.True(t, IsNotFound(notFound))
	assert.False(t, IsNotFound(mismatch))

	assert.True(t, IsTypeMismatch(mismatch))
	assert.False(t, IsTypeMismatch(unreachable))

	assert.True(t, IsUnreachable(unreachable))
	assert.False(t, IsUnreachable(invalid))

	assert.False(t, IsInvalid(nil))
	assert.False(t, IsNotFound(nil))
	assert.False(t, IsTypeMismatch(nil))
	assert.False(t, IsUnreachable(nil))
}

func TestSentinelPredicates(t *testing.T) {
	// Bare sentinels classify without a ClassifiedError wrapper.
	assert.True(t, IsInvalid(fmt.Errorf("ctx: %w", ErrAlreadyStarted)))
	assert.True(t, IsNotFound(fmt.Errorf("ctx: %w", ErrFactoryNotFound)))
	assert.True(t, IsTypeMismatch(fmt.Errorf("ctx: %w", ErrTypeMismatch)))
	assert.True(t, IsUnreachable(fmt.Errorf("ctx: %w", ErrUnreachable)))
}

func TestUnwrap(t *testing.T) {
	base := stderrors.New("root cause")
	err := WrapNotFound(base, "pipeline", "Connect", "block lookup")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "pipeline", ce.Component)
	assert.Equal(t, "Connect", ce.Operation)
	assert.True(t, stderrors.Is(err, base))
}
