// Command cpu_features prints the host details that decide which grid
// backend molgrid picks.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"

	"github.com/samcharles93/molgrid/internal/backend"
)

type output struct {
	GoVersion  string   `json:"go_version"`
	GoOS       string   `json:"go_os"`
	GoArch     string   `json:"go_arch"`
	CPUs       int      `json:"cpus"`
	GOMAXPROCS int      `json:"gomaxprocs"`
	Features   []string `json:"features"`
	Backends   string   `json:"backends"`
	Auto       string   `json:"auto"`
}

func main() {
	auto, err := backend.New(backend.Auto, 0)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	out := output{
		GoVersion:  runtime.Version(),
		GoOS:       runtime.GOOS,
		GoArch:     runtime.GOARCH,
		CPUs:       runtime.NumCPU(),
		GOMAXPROCS: runtime.GOMAXPROCS(0),
		Features:   backend.Features(),
		Backends:   backend.Available(),
		Auto:       auto.Name(),
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
