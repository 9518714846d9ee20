package backend

import "strings"

// Available returns a comma-separated list of available backends.
func Available() string {
	entries := []string{CPU, Parallel}
	if Has(CUDA) {
		entries = append(entries, CUDA)
	}
	return strings.Join(entries, ",")
}

func Has(name string) bool {
	switch name {
	case CPU, Parallel, Auto:
		return true
	default:
		return false
	}
}
