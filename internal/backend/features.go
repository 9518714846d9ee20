package backend

import (
	"runtime"

	"golang.org/x/sys/cpu"
)

// Features lists the host SIMD extensions relevant to the density loops.
func Features() []string {
	var out []string
	switch runtime.GOARCH {
	case "amd64", "386":
		for _, f := range []struct {
			name string
			ok   bool
		}{
			{"sse4.1", cpu.X86.HasSSE41},
			{"avx", cpu.X86.HasAVX},
			{"avx2", cpu.X86.HasAVX2},
			{"fma", cpu.X86.HasFMA},
			{"avx512f", cpu.X86.HasAVX512F},
		} {
			if f.ok {
				out = append(out, f.name)
			}
		}
	case "arm64":
		if cpu.ARM64.HasASIMD {
			out = append(out, "asimd")
		}
		if cpu.ARM64.HasFPHP {
			out = append(out, "fphp")
		}
		if cpu.ARM64.HasSVE {
			out = append(out, "sve")
		}
	}
	return out
}
