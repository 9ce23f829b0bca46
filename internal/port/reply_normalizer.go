package port

import "medaudit/internal/domain"

// ReplyNormalizer maps a raw endpoint reply into a canonical outcome.
// Implementations must be pure and must never fail.
type ReplyNormalizer interface {
	Normalize(reply *domain.RawEndpointReply) domain.AuditOutcome
}
