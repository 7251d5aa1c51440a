package reactive

import (
	"fmt"
	"log/slog"
	"strings"
)

// EdgePolicy controls what happens to a computed's dependency edges when it
// is rebuilt.
type EdgePolicy int

const (
	// EdgesAdditive keeps every edge a computed has ever registered.
	// Edges from reads a later rebuild no longer makes still trigger it.
	EdgesAdditive EdgePolicy = iota

	// EdgesReplace clears a computed's incoming edges before each rebuild,
	// so its dependencies are exactly the reads of its latest run.
	EdgesReplace
)

// String returns the config-file spelling of the policy.
func (p EdgePolicy) String() string {
	switch p {
	case EdgesAdditive:
		return "additive"
	case EdgesReplace:
		return "replace"
	default:
		return fmt.Sprintf("EdgePolicy(%d)", int(p))
	}
}

// ParseEdgePolicy parses "additive" or "replace". The empty string is additive.
func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "additive":
		return EdgesAdditive, nil
	case "replace":
		return EdgesReplace, nil
	default:
		return EdgesAdditive, fmt.Errorf("unknown edge policy %q (want additive or replace)", s)
	}
}

// Option is a functional option for configuring a Store.
type Option func(*storeOptions)

type storeOptions struct {
	logger        *slog.Logger
	observer      Observer
	edgePolicy    EdgePolicy
	maxDepth      int
	skipUnchanged bool
	normalizeIDs  bool
}

// WithLogger sets the structured logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *storeOptions) {
		o.logger = l
	}
}

// WithObserver installs hooks called on creation, writes, rebuilds and undo.
// Use Observers to install more than one.
func WithObserver(obs Observer) Option {
	return func(o *storeOptions) {
		o.observer = obs
	}
}

// WithEdgePolicy selects additive (default) or replacing edge handling.
func WithEdgePolicy(p EdgePolicy) Option {
	return func(o *storeOptions) {
		o.edgePolicy = p
	}
}

// WithMaxDepth bounds propagation depth. A write whose propagation would
// rebuild deeper than n returns an error matching ErrDepthExceeded.
// Zero, the default, means no bound.
func WithMaxDepth(n int) Option {
	return func(o *storeOptions) {
		if n < 0 {
			n = 0
		}
		o.maxDepth = n
	}
}

// WithSkipUnchanged stops propagation below a cell whose new value equals
// its previous one. Values are compared with == for basic types and
// reflect.DeepEqual otherwise. For Update, the previous value is a deep copy
// taken before fn runs, so in-place edits of maps and slices still count as
// changes.
func WithSkipUnchanged() Option {
	return func(o *storeOptions) {
		o.skipUnchanged = true
	}
}

// WithNormalizedIDs maps identifiers to Unicode NFC before lookup.
func WithNormalizedIDs() Option {
	return func(o *storeOptions) {
		o.normalizeIDs = true
	}
}
