// Package runtime wires the engine to the real world: OAuth credentials,
// the Gmail API adapter, and default logging.
package runtime

import (
	"context"
	"log/slog"
	"os"

	"github.com/mbrt/gmailctl/cmd/gmailctl/localcred"
	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/joshsymonds/inboxsteward/internal/gmail"
	"github.com/joshsymonds/inboxsteward/internal/rate"
)

// Scope selects the OAuth scope requested on first authorization.
type Scope int

const (
	ScopeReadonly Scope = iota
	ScopeModify
)

// NewGmailClient authenticates against Gmail using credentials stored in
// cfgDir (gmailctl layout) and returns the adapter. Analyze-only callers
// request the readonly scope; cleanup needs modify.
func NewGmailClient(ctx context.Context, cfgDir string, scope Scope, limiter rate.Limiter) (gmail.Client, error) {
	var svc *gmailapi.Service
	var err error
	switch scope {
	case ScopeReadonly:
		svc, err = (localcred.Provider{}).ServiceWithScopes(ctx, cfgDir, gmailapi.GmailReadonlyScope)
	case ScopeModify:
		svc, err = (localcred.Provider{}).ServiceWithScopes(ctx, cfgDir, gmailapi.GmailModifyScope)
	default:
		panic("unknown scope")
	}
	if err != nil {
		return nil, err
	}
	return NewGoogleAPIClient(svc, limiter), nil
}

// DefaultLogger returns the logger the CLIs use when none is configured.
func DefaultLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
}
