package store

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// ComputeFingerprint hashes the shape of a parsed unit: the ordered
// top-level declarations and the diagnostic count. A saved unit that
// reparses to a different fingerprint no longer matches its sources.
func ComputeFingerprint(decls []TopLevelDecl, diagnostics int) string {
	h := xxhash.New()
	for _, d := range decls {
		h.WriteString(strconv.Itoa(d.Kind))
		h.WriteString(":")
		h.WriteString(d.Name)
		h.WriteString("\n")
	}
	h.WriteString("diagnostics:")
	h.WriteString(strconv.Itoa(diagnostics))
	return fmt.Sprintf("%016x", h.Sum64())
}
