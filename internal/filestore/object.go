package filestore

import (
	"strings"
	"time"

	"github.com/koustreak/dbstream/internal/errs"
)

// Scheme is the URL scheme that addresses an object in a Store.
const Scheme = "s3://"

// DefaultPartSize is the multipart chunk used when the upload size is unknown.
const DefaultPartSize = 16 << 20

// ObjectInfo describes a single object stored in a bucket.
type ObjectInfo struct {
	Bucket string

	// Key is the full object path within the bucket (e.g. "exports/orders.csv").
	Key string

	// Size is the byte size of the object. -1 if unknown.
	Size int64

	ContentType  string
	ETag         string
	LastModified time.Time
}

// PutOptions controls how PutObject writes an object.
type PutOptions struct {
	// ContentType is stored with the object. Empty means
	// application/octet-stream.
	ContentType string

	// Size is the number of bytes r will yield, or -1 when unknown.
	Size int64

	// PartSize is the multipart chunk size. 0 means DefaultPartSize.
	PartSize uint64
}

// IsObjectURL reports whether s addresses an object rather than a local path.
func IsObjectURL(s string) bool {
	return strings.HasPrefix(strings.ToLower(s), Scheme)
}

// ParseObjectURL splits s3://bucket/key into its bucket and key.
func ParseObjectURL(s string) (bucket, key string, err error) {
	if !IsObjectURL(s) {
		return "", "", errs.New(errs.ErrKindInvalidInput, "object url must start with "+Scheme)
	}
	rest := s[len(Scheme):]
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || strings.Trim(key, "/") == "" {
		return "", "", errs.New(errs.ErrKindInvalidInput, "object url must be "+Scheme+"bucket/key")
	}
	return bucket, key, nil
}
