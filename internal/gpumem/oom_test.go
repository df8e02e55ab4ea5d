package gpumem

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsOOMSignatures(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   bool
	}{
		{"cuda driver error", "E0101 cuda_driver.cc CUDA_ERROR_OUT_OF_MEMORY: out of memory", true},
		{"torch style", "RuntimeError: CUDA out of memory. Tried to allocate 20.00 GiB", true},
		{"tensorflow oom", "OOM when allocating tensor with shape[4096,4096]", true},
		{"resource exhausted", "ResourceExhaustedError: Graph execution error", true},
		{"allocator failure", "XLA: failed to allocate 12.3GiB of device memory", true},
		{"generic allocation failure", "GPU memory allocation failed", true},
		{"unrelated failure", "segmentation fault (core dumped)", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsOOM(tt.output))
		})
	}
}

func TestContainsOOMRequiresSignature(t *testing.T) {
	withSignature := "Fold step crashed: CUDA out of memory while scoring model 3"
	assert.True(t, ContainsOOM(withSignature))

	withoutSignature := strings.ReplaceAll(withSignature, "CUDA out of memory", "unknown error")
	assert.False(t, ContainsOOM(withoutSignature))
}

func TestContainsOOMIgnoresPartialAllocPattern(t *testing.T) {
	// The alloc pattern needs both halves on the same blob.
	assert.False(t, ContainsOOM("failed to allocate buffer"))
	assert.True(t, ContainsOOM("failed to allocate 8GiB of pinned host memory"))
}
