package realtime

import (
	"context"
	"strings"

	"github.com/capitalize-ai/messaging-platform/internal/store"
)

type originKey struct{}

// Origin names the session, and the user owning it, that triggered an
// operation.
type Origin struct {
	SessionID string
	UserID    string
}

// WithOrigin marks ctx as triggered by sessionID on behalf of userID. The
// session is skipped when the resulting events are delivered, but only if it
// really belongs to userID.
func WithOrigin(ctx context.Context, userID, sessionID string) context.Context {
	if sessionID == "" || userID == "" {
		return ctx
	}
	return context.WithValue(ctx, originKey{}, Origin{SessionID: sessionID, UserID: store.CanonicalID(userID)})
}

// OriginFromContext returns the origin of the current operation.
func OriginFromContext(ctx context.Context) (Origin, bool) {
	o, ok := ctx.Value(originKey{}).(Origin)
	return o, ok
}

// OriginPolicy decides which browser origins may connect. Patterns are
// matched case-insensitively; "*" allows everything and a single "*" inside
// a pattern matches any run of characters, as in "https://*.example.com".
type OriginPolicy struct {
	all       bool
	exact     map[string]struct{}
	wildcards []wildcard
}

type wildcard struct {
	prefix string
	suffix string
}

func (w wildcard) match(s string) bool {
	return len(s) >= len(w.prefix)+len(w.suffix) && strings.HasPrefix(s, w.prefix) && strings.HasSuffix(s, w.suffix)
}

// NewOriginPolicy compiles patterns. An empty list allows every origin.
func NewOriginPolicy(patterns []string) *OriginPolicy {
	p := &OriginPolicy{exact: make(map[string]struct{})}
	if len(patterns) == 0 {
		p.all = true
		return p
	}
	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		switch i := strings.IndexByte(pattern, '*'); {
		case pattern == "*":
			p.all = true
		case i >= 0:
			p.wildcards = append(p.wildcards, wildcard{prefix: pattern[:i], suffix: pattern[i+1:]})
		case pattern != "":
			p.exact[pattern] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether origin matches the policy.
func (p *OriginPolicy) Allowed(origin string) bool {
	if p.all {
		return true
	}
	origin = strings.ToLower(origin)
	if _, ok := p.exact[origin]; ok {
		return true
	}
	for _, w := range p.wildcards {
		if w.match(origin) {
			return true
		}
	}
	return false
}
