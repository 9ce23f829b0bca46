package port

import "context"

// TextExtractor turns a PDF byte stream into plain text.
type TextExtractor interface {
	Extract(ctx context.Context, pdf []byte) (string, error)
}
