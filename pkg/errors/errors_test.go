package errors

import (
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeForStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorType
	}{
		{0, ErrorTypeNetwork},
		{401, ErrorTypeAuth},
		{403, ErrorTypeAuth},
		{404, ErrorTypeNotFound},
		{429, ErrorTypeRateLimit},
		{500, ErrorTypeServerError},
		{503, ErrorTypeServerError},
		{418, ErrorTypeUnknown},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("status_%d", tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, TypeForStatus(tt.status))
		})
	}
}

func TestErrorWrapping(t *testing.T) {
	err := Wrap(ErrorTypeStorage, 0, "append row", io.ErrShortWrite)
	wrapped := fmt.Errorf("collect: %w", err)

	assert.True(t, Is(wrapped, io.ErrShortWrite))
	assert.Equal(t, ErrorTypeStorage, TypeOf(wrapped))
	assert.Contains(t, err.Error(), "storage error (code 0): append row")
	assert.Equal(t, ErrorTypeUnknown, TypeOf(io.EOF))
}

func TestIsFatal(t *testing.T) {
	assert.True(t, IsFatal(ErrorTypeAuth))
	assert.True(t, IsFatal(ErrorTypeStorage))
	assert.False(t, IsFatal(ErrorTypeNetwork))
	assert.False(t, IsFatal(ErrorTypeRateLimit))
}
