// Package classifier adapts an external chat-completion model into the
// structured content classification the moderation pipeline consumes. The
// adapter owns prompt construction, extraction of the JSON verdict from the
// model's free-form reply, and clamping/defaulting of the parsed fields, so
// the orchestrator only ever sees a clean verdict or an error.
//
// Failure policy: a reply that cannot be parsed is treated as a content
// problem and yields a conservative blocking verdict, while a transport
// failure (network, auth, timeout) is returned as an error for the caller to
// downgrade to "no AI opinion".
package classifier

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// DefaultTimeout bounds a single classification call. The upstream model has
// no inherent deadline, so an explicit one keeps a slow provider from
// stalling comment processing.
const DefaultTimeout = 10 * time.Second

// riskCategories are the tags the model is instructed to choose from.
var riskCategories = []string{
	"toxicity", "spam", "profanity", "harassment",
	"illegal", "inappropriate", "self_harm", "violence",
}

const systemPrompt = `You are a content moderation classifier for a live learning platform.
Assess the %s below and reply with a single JSON object, no other text:
{"riskScore": <number 0 to 1>, "riskCategories": [<zero or more of: %s>], "approved": <bool>, "reason": <string>, "shouldBlock": <bool>, "shouldWarn": <bool>}`

// Verdict is a normalized classification result. RiskScore is always within
// [0,1] and RiskCategories is never nil.
type Verdict struct {
	Approved       bool
	RiskScore      float64
	RiskCategories []string
	Reason         string
	ShouldBlock    bool
	ShouldWarn     bool
}

// rawVerdict mirrors the JSON contract with the model. Pointer fields
// distinguish absent keys from explicit values: approved defaults to true
// unless the model explicitly says false.
type rawVerdict struct {
	RiskScore      *float64 `json:"riskScore"`
	RiskCategories []string `json:"riskCategories"`
	Approved       *bool    `json:"approved"`
	Reason         string   `json:"reason"`
	ShouldBlock    bool     `json:"shouldBlock"`
	ShouldWarn     bool     `json:"shouldWarn"`
}

// Adapter wraps a chat model as a moderation classifier. A nil model means
// the capability is not configured; Classify then returns a neutral approval
// without calling out.
type Adapter struct {
	model   model.BaseChatModel
	timeout time.Duration
}

// New creates an Adapter around the given chat model. timeout bounds each
// call; zero or negative falls back to DefaultTimeout.
func New(m model.BaseChatModel, timeout time.Duration) *Adapter {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Adapter{model: m, timeout: timeout}
}

// Available reports whether a model is configured.
func (a *Adapter) Available() bool {
	return a != nil && a.model != nil
}

// neutral is the verdict used when the capability is not configured.
func neutral() Verdict {
	return Verdict{Approved: true, RiskScore: 0, RiskCategories: []string{}}
}

// parseFailure is the verdict for replies that carry no parseable JSON.
func parseFailure() Verdict {
	return Verdict{
		Approved:       false,
		RiskScore:      0.6,
		RiskCategories: []string{"ai_parse_error"},
		Reason:         "classifier returned an unparseable response",
		ShouldBlock:    true,
		ShouldWarn:     true,
	}
}

// Classify sends content to the model and returns the normalized verdict.
// contentType names what is being assessed ("comment" or "session content")
// and is interpolated into the prompt.
func (a *Adapter) Classify(ctx context.Context, content, contentType string) (Verdict, error) {
	if !a.Available() {
		return neutral(), nil
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	messages := []*schema.Message{
		{Role: schema.System, Content: fmt.Sprintf(systemPrompt, contentType, strings.Join(riskCategories, ", "))},
		{Role: schema.User, Content: content},
	}

	reply, err := a.model.Generate(ctx, messages)
	if err != nil {
		return Verdict{}, fmt.Errorf("classifier: generate: %w", err)
	}

	return parseVerdict(reply.Content), nil
}

// parseVerdict extracts the JSON verdict from a model reply. It first tries
// the outermost {...} substring to tolerate JSON embedded in surrounding
// prose, then the whole reply, and falls back to the conservative blocking
// verdict if neither parses.
func parseVerdict(reply string) Verdict {
	var raw rawVerdict
	ok := false

	start := strings.Index(reply, "{")
	end := strings.LastIndex(reply, "}")
	if start >= 0 && end > start {
		ok = json.Unmarshal([]byte(reply[start:end+1]), &raw) == nil
	}
	if !ok {
		ok = json.Unmarshal([]byte(reply), &raw) == nil
	}
	if !ok {
		return parseFailure()
	}

	v := Verdict{
		Approved:       true,
		RiskCategories: raw.RiskCategories,
		Reason:         raw.Reason,
		ShouldBlock:    raw.ShouldBlock,
		ShouldWarn:     raw.ShouldWarn,
	}
	if raw.Approved != nil {
		v.Approved = *raw.Approved
	}
	if raw.RiskScore != nil {
		v.RiskScore = clamp01(*raw.RiskScore)
	}
	if v.RiskCategories == nil {
		v.RiskCategories = []string{}
	}
	return v
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
