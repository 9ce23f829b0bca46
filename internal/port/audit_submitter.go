package port

import (
	"context"

	"medaudit/internal/domain"
)

// AuditSubmitter performs the network exchange with the external audit endpoint.
// Replies are returned unparsed.
type AuditSubmitter interface {
	Submit(ctx context.Context, req domain.SubmissionRequest) (*domain.RawEndpointReply, error)
}
