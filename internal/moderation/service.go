package moderation

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/lumenlms/live-moderation/internal/classifier"
	"github.com/lumenlms/live-moderation/internal/keyword"
	"github.com/lumenlms/live-moderation/internal/ledger"
	"github.com/lumenlms/live-moderation/internal/metrics"
	"github.com/lumenlms/live-moderation/internal/policy"
	"github.com/lumenlms/live-moderation/internal/ratelimit"
)

// PolicyStore resolves per-session moderation configuration.
type PolicyStore interface {
	GetOrCreate(ctx context.Context, sessionID string) (*policy.Policy, error)
}

// Ledger records moderation decisions and derives violation standing.
type Ledger interface {
	Create(ctx context.Context, r *ledger.Record) error
	CountViolations(ctx context.Context, sessionID, userID string) (int, error)
	Unban(ctx context.Context, sessionID, userID, moderatedBy string) error
}

// Classifier is the external AI classification capability.
type Classifier interface {
	Classify(ctx context.Context, content, contentType string) (classifier.Verdict, error)
}

// Limiter checks and records comment send times.
type Limiter interface {
	CanSend(ctx context.Context, sessionID, userID string, interval time.Duration) (ratelimit.Decision, error)
	Record(ctx context.Context, sessionID, userID string, interval time.Duration) error
}

// Service orchestrates the moderation pipeline.
type Service struct {
	policies   PolicyStore
	ledger     Ledger
	classifier Classifier
	limiter    Limiter
}

// NewService wires the pipeline's collaborators.
func NewService(policies PolicyStore, lg Ledger, cl Classifier, lim Limiter) *Service {
	return &Service{policies: policies, ledger: lg, classifier: cl, limiter: lim}
}

// CanSendComment is the advisory rate limit pre-check invoked by the chat
// transport before it submits a comment for moderation. A policy with no
// configured interval always allows.
func (s *Service) CanSendComment(ctx context.Context, sessionID, userID string) (ratelimit.Decision, error) {
	pol, err := s.policies.GetOrCreate(ctx, sessionID)
	if err != nil {
		return ratelimit.Decision{}, err
	}
	if pol.CommentMinIntervalSeconds <= 0 {
		return ratelimit.Decision{Allowed: true}, nil
	}

	interval := time.Duration(pol.CommentMinIntervalSeconds) * time.Second
	d, err := s.limiter.CanSend(ctx, sessionID, userID, interval)
	if err != nil {
		// Redis trouble: the limiter already failed open, just count it.
		return d, nil
	}
	if !d.Allowed {
		metrics.RateLimited.Inc()
	}
	return d, nil
}

// ModerateComment evaluates one inbound comment and returns the decision.
// Stages run in fixed precedence, each short-circuiting to a final decision:
// disabled, length, blocked keywords, AI classifier, violation threshold.
// Every evaluated comment is recorded in the ledger except the trivial
// moderation-disabled pass. A ledger write failure is returned as a hard
// error: an unlogged decision must not appear to succeed.
func (s *Service) ModerateComment(ctx context.Context, sessionID, userID, message, messageID string) (Result, error) {
	pol, err := s.policies.GetOrCreate(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("moderation: resolve policy: %w", err)
	}

	if !pol.CommentModerationEnabled {
		return approvedResult(), nil
	}

	var res Result
	decided := false

	// Length limit.
	if pol.CommentMaxLength > 0 && utf8.RuneCountInString(message) > pol.CommentMaxLength {
		res = Result{
			Approved:       false,
			RiskScore:      0.3,
			RiskCategories: []string{CategoryLengthExceeded},
			Reason:         fmt.Sprintf("comment exceeds the %d character limit", pol.CommentMaxLength),
			ShouldBlock:    true,
			ShouldWarn:     true,
		}
		decided = true
	}

	// Blocked keywords. Highest precedence among content checks; the
	// classifier is never consulted for a keyword match.
	if !decided {
		if match := keywordCheck(message, pol.CommentBlockedKeywords); match != nil {
			res = *match
			decided = true
		}
	}

	// AI classification. Transport failures degrade to "no AI opinion";
	// only the adapter's parse-failure verdict can reject here.
	var verdict *classifier.Verdict
	aiChecked := false
	if !decided && pol.CommentAIModeration {
		v, err := s.classify(ctx, message, "comment")
		if err != nil {
			log.Printf("[moderation] classifier unavailable session=%s user=%s: %v (continuing without AI)", sessionID, userID, err)
		} else {
			verdict = &v
			aiChecked = true
		}
	}

	// Violation threshold. Prior standing is recomputed from ledger
	// statuses; the stored per-record snapshot is never consulted.
	priorCount, err := s.ledger.CountViolations(ctx, sessionID, userID)
	if err != nil {
		return Result{}, fmt.Errorf("moderation: count violations: %w", err)
	}
	if !decided && pol.AutoBlockViolations && priorCount >= pol.ViolationThreshold {
		res = Result{
			Approved:       false,
			RiskScore:      0.9,
			RiskCategories: []string{CategoryViolationThreshold},
			Reason:         fmt.Sprintf("blocked after %d prior violations in this session", priorCount),
			ShouldBlock:    true,
			ShouldWarn:     true,
		}
		decided = true
	}

	// Combine: with no rule objection the classifier's verdict is
	// authoritative; without one, approve with zero risk.
	if !decided {
		if verdict != nil {
			res = fromVerdict(*verdict)
		} else {
			res = approvedResult()
		}
	}

	record := buildRecord(sessionID, userID, message, messageID, res, aiChecked, verdict, priorCount)
	if err := s.ledger.Create(ctx, record); err != nil {
		return Result{}, fmt.Errorf("moderation: persist record: %w", err)
	}
	metrics.Decisions.WithLabelValues(record.Status).Inc()
	if !res.Approved && len(res.RiskCategories) > 0 {
		metrics.StageBlocks.WithLabelValues(res.RiskCategories[0]).Inc()
	}

	// Best effort: stamp the send time so the next pre-check sees it.
	if res.Approved && s.limiter != nil && pol.CommentMinIntervalSeconds > 0 {
		interval := time.Duration(pol.CommentMinIntervalSeconds) * time.Second
		if err := s.limiter.Record(ctx, sessionID, userID, interval); err != nil {
			log.Printf("[moderation] record send time session=%s user=%s: %v", sessionID, userID, err)
		}
	}

	return res, nil
}

// ModerateContent evaluates session title/description content. A simpler
// pipeline than comments: keyword check then classifier, no rate limiting
// and no ledger entry.
func (s *Service) ModerateContent(ctx context.Context, sessionID, content string) (Result, error) {
	pol, err := s.policies.GetOrCreate(ctx, sessionID)
	if err != nil {
		return Result{}, fmt.Errorf("moderation: resolve policy: %w", err)
	}

	if !pol.ContentModerationEnabled {
		return approvedResult(), nil
	}

	if match := keywordCheck(content, pol.ContentBlockedKeywords); match != nil {
		return *match, nil
	}

	if pol.ContentAIModeration {
		v, err := s.classify(ctx, content, "session content")
		if err != nil {
			log.Printf("[moderation] classifier unavailable for content session=%s: %v (continuing without AI)", sessionID, err)
		} else {
			return fromVerdict(v), nil
		}
	}

	return approvedResult(), nil
}

// UnbanUser clears a user's violation standing in a session: the ledger
// rewrites every blocked/rejected record to approved and zeroes the stored
// count snapshots, so subsequent threshold checks start from zero.
func (s *Service) UnbanUser(ctx context.Context, sessionID, userID, requestedBy string) error {
	if requestedBy == "" {
		requestedBy = "host"
	}
	if err := s.ledger.Unban(ctx, sessionID, userID, requestedBy); err != nil {
		return fmt.Errorf("moderation: unban: %w", err)
	}
	metrics.Unbans.Inc()
	log.Printf("[moderation] unbanned user=%s session=%s by=%s", userID, sessionID, requestedBy)
	return nil
}

// classify calls the adapter with latency and outcome instrumentation.
func (s *Service) classify(ctx context.Context, content, contentType string) (classifier.Verdict, error) {
	start := time.Now()
	v, err := s.classifier.Classify(ctx, content, contentType)
	metrics.ClassifierLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ClassifierRequests.WithLabelValues("error").Inc()
		return classifier.Verdict{}, err
	}
	if len(v.RiskCategories) == 1 && v.RiskCategories[0] == "ai_parse_error" {
		metrics.ClassifierRequests.WithLabelValues("parse_error").Inc()
	} else {
		metrics.ClassifierRequests.WithLabelValues("ok").Inc()
	}
	return v, nil
}

// keywordCheck returns the blocking result for a keyword match, or nil when
// the message is clean.
func keywordCheck(message string, keywords []string) *Result {
	match := keyword.Check(message, keywords)
	if !match.Found {
		return nil
	}
	return &Result{
		Approved:       false,
		RiskScore:      0.8,
		RiskCategories: []string{CategoryBlockedKeywords},
		Reason:         "contains blocked keywords: " + strings.Join(match.Keywords, ", "),
		ShouldBlock:    true,
		ShouldWarn:     true,
	}
}

// buildRecord assembles the audit entry for a decision. The stored violation
// count is the prior count, plus one if this decision is itself a violation.
func buildRecord(sessionID, userID, message, messageID string, res Result, aiChecked bool, verdict *classifier.Verdict, priorCount int) *ledger.Record {
	status := ledger.StatusRejected
	switch {
	case res.Approved:
		status = ledger.StatusApproved
	case res.ShouldBlock:
		status = ledger.StatusBlocked
	}

	count := priorCount
	if !res.Approved {
		count++
	}

	r := &ledger.Record{
		SessionID:      sessionID,
		UserID:         userID,
		MessageID:      messageID,
		MessageContent: message,
		Status:         status,
		AIChecked:      aiChecked,
		ViolationCount: count,
	}
	if verdict != nil {
		score := verdict.RiskScore
		r.AIRiskScore = &score
		r.AIRiskCategories = verdict.RiskCategories
		r.AIReason = verdict.Reason
	}
	return r
}
