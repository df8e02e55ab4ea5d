package gpumem

import (
	"regexp"
	"strings"
)

// oomSignatures are vendor/framework out-of-memory messages matched
// verbatim against captured job output.
var oomSignatures = []string{
	"CUDA_ERROR_OUT_OF_MEMORY",
	"CUDA out of memory",
	"OOM when allocating tensor",
	"ResourceExhaustedError",
	"GPU memory allocation failed",
}

var oomAllocPattern = regexp.MustCompile(`failed to allocate.*memory`)

// ContainsOOM reports whether the fully captured output of a failed run
// signals an out-of-memory condition. It must be given the complete blob,
// not a streaming prefix, so a signature split across reads cannot be
// missed.
func ContainsOOM(output string) bool {
	for _, sig := range oomSignatures {
		if strings.Contains(output, sig) {
			return true
		}
	}
	return oomAllocPattern.MatchString(output)
}
