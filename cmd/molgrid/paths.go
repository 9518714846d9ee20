package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	envMolgridOutDir = "MOLGRID_OUT_DIR"

	gridExt     = ".mgrd"
	moleculeExt = ".json"
)

// stdout is a small seam for tests.
var stdout io.Writer = os.Stdout

// expandInputs replaces directories with the molecule files they contain.
// Files are kept in argument order; directory contents are sorted.
func expandInputs(args []string) ([]string, error) {
	var out []string
	for _, arg := range args {
		arg = strings.TrimSpace(arg)
		if arg == "" {
			continue
		}
		st, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !st.IsDir() {
			out = append(out, filepath.Clean(arg))
			continue
		}
		found, err := discoverMolecules(arg)
		if err != nil {
			return nil, err
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no %s molecules found in %s", moleculeExt, arg)
		}
		out = append(out, found...)
	}
	return out, nil
}

func discoverMolecules(dir string) ([]string, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("molecule directory is empty")
	}
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	found := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(strings.ToLower(name), moleculeExt) {
			continue
		}
		found = append(found, filepath.Join(dir, name))
	}
	sort.Strings(found)
	return found, nil
}

// resolveGridOut picks where the grid for input is written. An explicit
// output wins; otherwise the grid goes to MOLGRID_OUT_DIR or next to the
// input, named after it.
func resolveGridOut(input, outFlag, outDir string) (string, error) {
	outFlag = strings.TrimSpace(outFlag)
	if outFlag != "" {
		outPath := filepath.Clean(outFlag)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return "", err
		}
		return outPath, nil
	}

	base := filepath.Base(filepath.Clean(input))
	if base == "" || base == "." || base == string(filepath.Separator) {
		return "", fmt.Errorf("invalid input path: %q", input)
	}
	base = strings.TrimSuffix(base, filepath.Ext(base)) + gridExt

	dir := strings.TrimSpace(outDir)
	if dir == "" {
		dir = strings.TrimSpace(os.Getenv(envMolgridOutDir))
	}
	if dir == "" {
		dir = filepath.Dir(input)
	}
	outPath := filepath.Join(dir, base)
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return "", err
	}
	return outPath, nil
}

func withSuffix(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
