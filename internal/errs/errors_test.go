package errs

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestError_Message(t *testing.T) {
	assert.Equal(t, "[query_failed] prepare failed", New(ErrKindQueryFailed, "prepare failed").Error())

	cause := errors.New("syntax error at or near \"SELEC\"")
	err := Wrap(ErrKindQueryFailed, "prepare failed", cause)
	assert.Equal(t, `[query_failed] prepare failed: syntax error at or near "SELEC"`, err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrKind
	}{
		{name: "nil", err: nil, want: ErrKindUnknown},
		{name: "plain error", err: errors.New("boom"), want: ErrKindUnknown},
		{name: "direct", err: New(ErrKindTimeout, "slow"), want: ErrKindTimeout},
		{
			name: "wrapped by fmt",
			err:  fmt.Errorf("connect: %w", Wrap(ErrKindConnectionFailed, "dial", errors.New("refused"))),
			want: ErrKindConnectionFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestPredicates(t *testing.T) {
	assert.True(t, IsConnectionFailed(New(ErrKindConnectionFailed, "")))
	assert.True(t, IsQueryFailed(New(ErrKindQueryFailed, "")))
	assert.True(t, IsTimeout(New(ErrKindTimeout, "")))
	assert.True(t, IsInvalidInput(New(ErrKindInvalidInput, "")))
	assert.True(t, IsPermissionDenied(New(ErrKindPermissionDenied, "")))
	assert.False(t, IsQueryFailed(New(ErrKindConnectionFailed, "")))
}

func TestErrKind_String(t *testing.T) {
	assert.Equal(t, "unknown", ErrKindUnknown.String())
	assert.Equal(t, "permission_denied", ErrKindPermissionDenied.String())
	assert.Equal(t, "unknown", ErrKind(42).String())
}
