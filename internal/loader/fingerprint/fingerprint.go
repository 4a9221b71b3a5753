// Package fingerprint derives a stable identifier for a load attempt's input
// content. Two batches with the same parsed records produce the same
// fingerprint regardless of when or where they were parsed, which is the
// basis of the loader's idempotency contract.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"sstload/internal/loader/models"
)

// Of hashes the canonical serialization of a parsed batch. Record order is
// significant: the upstream parser contract guarantees a stable ordering for
// a given source document.
func Of(records []models.RawRecord) string {
	h := sha256.New()
	for _, r := range records {
		fmt.Fprintf(h, "%s\n", r.Fields.Canonical())
	}
	return hex.EncodeToString(h.Sum(nil))
}
