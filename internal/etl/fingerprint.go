package etl

import (
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/BartekS5/cinesync/pkg/models"
)

// Fingerprint hashes the encoded documents of a batch in order. Equal
// batches hash equal, which lets consumers drop duplicate notifications
// after a retried pass.
func Fingerprint(docs []models.Document) (string, error) {
	h := xxhash.New()
	for _, doc := range docs {
		raw, err := doc.Encode()
		if err != nil {
			return "", fmt.Errorf("encode %s: %w", doc.ID, err)
		}
		h.WriteString(doc.ID)
		h.Write([]byte{0})
		h.Write(raw)
	}
	return fmt.Sprintf("%016x", h.Sum64()), nil
}
