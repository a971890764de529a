package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ObjectStorage persists uploaded objects and derives their public URLs.
type ObjectStorage interface {
	Upload(ctx context.Context, objectPath string, data []byte, contentType string) error
	PublicURL(objectPath string) string
}

// ProofPath namespaces a proof image by its owner and the upload time in
// milliseconds, so two submissions by one user never share a path.
func ProofPath(userID uuid.UUID, at time.Time, ext string) string {
	return fmt.Sprintf("proofs/%s/%d%s", userID, at.UnixMilli(), ext)
}

func CertificatePath(payoutID uuid.UUID) string {
	return fmt.Sprintf("certificates/%s.pdf", payoutID)
}
