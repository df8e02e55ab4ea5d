// Package hostinfo best-effort detects host hardware names for report
// metadata. Every lookup degrades to a generic label; nothing here fails.
package hostinfo

import (
	"bufio"
	"os"
	"os/exec"
	"runtime"
	"strconv"
	"strings"
)

// CPUModel returns the host CPU model name, or a generic arch label when
// it cannot be determined.
func CPUModel() string {
	if runtime.GOOS == "darwin" {
		if out, err := exec.Command("sysctl", "-n", "machdep.cpu.brand_string").Output(); err == nil {
			return strings.TrimSpace(string(out))
		}
	}
	if runtime.GOOS == "linux" {
		if f, err := os.Open("/proc/cpuinfo"); err == nil {
			defer f.Close()
			sc := bufio.NewScanner(f)
			for sc.Scan() {
				line := sc.Text()
				if strings.HasPrefix(line, "model name") {
					if _, v, ok := strings.Cut(line, ":"); ok {
						return strings.TrimSpace(v)
					}
				}
			}
		}
	}
	return runtime.GOARCH + " CPU"
}

// GPUName returns the product name of the given GPU device via nvidia-smi,
// or "" when no GPU is detectable.
func GPUName(device int) string {
	if _, err := exec.LookPath("nvidia-smi"); err != nil {
		return ""
	}
	out, err := exec.Command("nvidia-smi", "--query-gpu=name,index", "--format=csv,noheader").Output()
	if err != nil {
		return ""
	}

	lines := strings.Split(strings.TrimSpace(string(out)), "\n")
	for _, ln := range lines {
		name, idxStr, ok := strings.Cut(ln, ",")
		if !ok {
			continue
		}
		if idx, err := strconv.Atoi(strings.TrimSpace(idxStr)); err == nil && idx == device {
			return strings.TrimSpace(name)
		}
	}
	// No index match; take the first listed device.
	if name, _, ok := strings.Cut(lines[0], ","); ok {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(lines[0])
}
