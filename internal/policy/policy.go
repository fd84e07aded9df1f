// Package policy manages per-session moderation configuration. Every live
// session gets exactly one policy row, created lazily with safe defaults the
// first time the session is moderated and editable by the session host
// afterwards.
package policy

import "time"

// DefaultBlockedKeywords is the baseline comment keyword list applied to new
// policies and backfilled into existing policies with an empty list.
var DefaultBlockedKeywords = []string{
	"spam",
	"scam",
	"free money",
	"crypto giveaway",
	"onlyfans",
	"porn",
	"kys",
}

// Default limits applied to newly created policies.
const (
	DefaultMaxLength          = 1000 // runes
	DefaultMinIntervalSeconds = 3
	DefaultViolationThreshold = 3
)

// Policy holds the moderation configuration for a single live session.
// Comment* fields govern the per-comment pipeline; Content* fields govern the
// session title/description pipeline. A zero CommentMaxLength means no length
// limit, and a zero CommentMinIntervalSeconds disables rate limiting.
type Policy struct {
	SessionID string

	CommentModerationEnabled  bool
	CommentAIModeration       bool
	CommentManualModeration   bool
	CommentBlockedKeywords    []string
	CommentMaxLength          int
	CommentMinIntervalSeconds int

	ContentModerationEnabled bool
	ContentAIModeration      bool
	ContentBlockedKeywords   []string

	AutoBlockViolations bool
	AutoWarnViolations  bool
	ViolationThreshold  int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Default returns a new policy for the given session with safe defaults:
// moderation on, AI assistance on, manual review off, the baseline keyword
// list, and automatic blocking after DefaultViolationThreshold violations.
func Default(sessionID string) *Policy {
	keywords := make([]string, len(DefaultBlockedKeywords))
	copy(keywords, DefaultBlockedKeywords)
	contentKeywords := make([]string, len(DefaultBlockedKeywords))
	copy(contentKeywords, DefaultBlockedKeywords)

	return &Policy{
		SessionID:                 sessionID,
		CommentModerationEnabled:  true,
		CommentAIModeration:       true,
		CommentManualModeration:   false,
		CommentBlockedKeywords:    keywords,
		CommentMaxLength:          DefaultMaxLength,
		CommentMinIntervalSeconds: DefaultMinIntervalSeconds,
		ContentModerationEnabled:  true,
		ContentAIModeration:       true,
		ContentBlockedKeywords:    contentKeywords,
		AutoBlockViolations:       true,
		AutoWarnViolations:        true,
		ViolationThreshold:        DefaultViolationThreshold,
	}
}
