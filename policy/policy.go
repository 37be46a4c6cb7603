// Package policy provides an optional per-admission control layer attached
// to the context.  It is decoupled from the engine core: a context without a
// policy keeps the default "auto" behaviour where every admission proceeds.
package policy

import (
	"context"
	"strings"
)

// Admission modes recognised by the runtime.
const (
	ModeAsk  = "ask"  // consult AskFunc before every admission
	ModeAuto = "auto" // admit automatically (default)
	ModeDeny = "deny" // block every admission
)

// AskFunc is invoked when Mode is ask.  Returning true admits the process.
// Implementations may mutate the policy, for example switching to ModeAuto
// after the first approval.
type AskFunc func(ctx context.Context, processType string, p *Policy) bool

// Policy holds the admission settings for the current session.  A nil
// *Policy means "admit everything" and is the zero-cost default.
type Policy struct {
	Mode      string   // ask / auto / deny (default = auto)
	AllowList []string // process types always admissible (empty = all)
	BlockList []string // process types never admissible
	Ask       AskFunc  // used only when Mode is ask
}

// Config is the declarative, serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy without an
// AskFunc.
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates the allow and block lists by case-insensitive exact
// match of the process type name.  The block list has priority.
func (p *Policy) IsAllowed(processType string) bool {
	if p == nil {
		return true
	}
	normalized := strings.ToLower(processType)
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}
	if len(p.AllowList) == 0 {
		return true
	}
	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}
	return false
}

// Admit decides whether the admission may proceed under this policy.
func (p *Policy) Admit(ctx context.Context, processType string) bool {
	if p == nil {
		return true
	}
	if !p.IsAllowed(processType) {
		return false
	}
	switch p.Mode {
	case ModeDeny:
		return false
	case ModeAsk:
		if p.Ask == nil {
			return false
		}
		return p.Ask(ctx, processType, p)
	default:
		return true
	}
}

type ctxKeyT struct{}

var ctxKey ctxKeyT

// WithPolicy embeds the policy in ctx.
func WithPolicy(ctx context.Context, p *Policy) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxKey, p)
}

// FromContext extracts the policy, or nil when the context carries none.
func FromContext(ctx context.Context) *Policy {
	if ctx == nil {
		return nil
	}
	if v, ok := ctx.Value(ctxKey).(*Policy); ok {
		return v
	}
	return nil
}
