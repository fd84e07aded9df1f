// Package ledger provides PostgreSQL-backed storage for moderation records:
// the append-only audit trail of every evaluated comment attempt, kept even
// when the comment was blocked before any chat message was persisted. A
// user's violation standing in a session is derived from this history, not
// stored as a counter.
package ledger

import "time"

// Record statuses. Violations are records whose status is StatusRejected or
// StatusBlocked.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
	StatusBlocked  = "blocked"
	StatusFlagged  = "flagged"
)

// Record is one moderation decision. Records are immutable once written
// except for the status/moderation fields, which only the unban operation
// rewrites.
type Record struct {
	ID             string
	SessionID      string
	UserID         string
	MessageID      string // empty if the comment was blocked before persistence
	MessageContent string
	Status         string

	AIChecked        bool
	AIRiskScore      *float64 // nil when the classifier gave no opinion
	AIRiskCategories []string
	AIReason         string

	ModeratedBy      string
	ModerationReason string
	ModeratedAt      *time.Time

	// ViolationCount is the point-in-time count captured when the decision
	// was made. The authoritative count is always recomputed from statuses;
	// this field is a historical snapshot only.
	ViolationCount int

	CreatedAt time.Time
}
