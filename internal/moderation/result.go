// Package moderation implements the live-session comment moderation
// pipeline: policy resolution, keyword filtering, AI-assisted classification
// with degraded fallback, and violation-count escalation to automatic
// blocking. Rules run in fixed precedence and every evaluated comment leaves
// an audit record in the ledger.
package moderation

import "github.com/lumenlms/live-moderation/internal/classifier"

// Risk category tags assigned by the rule stages (the classifier assigns its
// own tags from the adapter's category list).
const (
	CategoryLengthExceeded     = "length_exceeded"
	CategoryBlockedKeywords    = "blocked_keywords"
	CategoryViolationThreshold = "user_violation_threshold"
)

// Result is the outcome of moderating one comment or one piece of session
// content. A rejected result carries a Reason suitable for showing to the
// sender.
type Result struct {
	Approved       bool     `json:"approved"`
	RiskScore      float64  `json:"risk_score"`
	RiskCategories []string `json:"risk_categories"`
	Reason         string   `json:"reason,omitempty"`
	ShouldBlock    bool     `json:"should_block"`
	ShouldWarn     bool     `json:"should_warn"`
}

// approvedResult is the trivial pass used when moderation is disabled or no
// stage objected.
func approvedResult() Result {
	return Result{Approved: true, RiskScore: 0, RiskCategories: []string{}}
}

// fromVerdict converts a classifier verdict into a pipeline result.
func fromVerdict(v classifier.Verdict) Result {
	return Result{
		Approved:       v.Approved,
		RiskScore:      v.RiskScore,
		RiskCategories: v.RiskCategories,
		Reason:         v.Reason,
		ShouldBlock:    v.ShouldBlock,
		ShouldWarn:     v.ShouldWarn,
	}
}

// CommentCheckRequest is published by the chat transport when a comment
// needs moderation before broadcast. MessageID is set only if the transport
// already persisted the message.
type CommentCheckRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id,omitempty"`
	Text      string `json:"text"`
}

// ContentCheckRequest asks for moderation of session title/description
// content before it becomes visible.
type ContentCheckRequest struct {
	SessionID string `json:"session_id"`
	Content   string `json:"content"`
}

// PrecheckRequest asks whether a user may submit another comment yet.
type PrecheckRequest struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// PrecheckResponse is the advisory rate limit answer.
type PrecheckResponse struct {
	Allowed     bool   `json:"allowed"`
	Reason      string `json:"reason,omitempty"`
	WaitSeconds int    `json:"wait_seconds,omitempty"`
}

// UnbanRequest clears a user's violation standing in a session.
type UnbanRequest struct {
	SessionID   string `json:"session_id"`
	UserID      string `json:"user_id"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// Decision is the moderation outcome published back to the chat transport,
// which only broadcasts the message if Approved is true.
type Decision struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
	MessageID string `json:"message_id,omitempty"`
	Result
}
