// Package voucher implements the document lifecycle around ledger records:
// resolving where vouchers live in object storage, uploading signed and
// receipt documents, rendering voucher PDFs, and the void transition.
package voucher

import "context"

// DocumentStore is the object storage capability this package consumes.
// Implementations report a missing object through storage.ErrObjectNotFound
// on SignedURL and Download.
type DocumentStore interface {
	Upload(ctx context.Context, bucket, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, bucket, key string) (string, error)
	Exists(ctx context.Context, bucket, key string) (bool, error)
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	Download(ctx context.Context, bucket, key string) ([]byte, error)
}

// Buckets names the two storage namespaces documents are filed in.
type Buckets struct {
	Expense string
	Income  string
}
