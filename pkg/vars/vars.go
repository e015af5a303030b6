// Package vars lazily materializes a document's variable tree.
// Children are fetched from the document's provider only when a node is
// expanded, and indexed collections too large to enumerate in one page are
// split into synthetic, re-expandable range nodes. No fetch ever returns
// more than one page of nodes regardless of collection size.
package vars

import (
	"context"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// DefaultPageSize is the upper bound on nodes materialized per fetch when
// no explicit page size is configured.
const DefaultPageSize = 100

// ScopeHandle addresses the whole-document scope in provider queries, as
// opposed to a provider-assigned variable handle.
const ScopeHandle int64 = 0

// Mode selects which class of children a provider enumerates.
type Mode string

const (
	// ModeNamed enumerates children addressed by name (object fields),
	// produced in one unpaged batch.
	ModeNamed Mode = "named"
	// ModeIndexed enumerates children addressed by position (array
	// elements), paged via a start offset.
	ModeIndexed Mode = "indexed"
)

// Kind discriminates the two element variants of a variable tree.
type Kind string

const (
	KindRoot     Kind = "root"
	KindVariable Kind = "variable"
)

// Element is a node in a document's variable tree: either the synthetic
// RootScope or a Variable. The two variants share no behavior, only a place
// in the same traversal, so consumers switch on the concrete type.
type Element interface {
	Kind() Kind
}

// RootScope is the synthetic root of one document view's variable tree.
// It is created once per view and never mutated.
type RootScope struct {
	// URI identifies the owning document.
	URI string
	// SessionID identifies this view of the document. Re-opening the same
	// document yields a new session.
	SessionID string
}

// NewRootScope creates the root element for a fresh view of uri.
func NewRootScope(uri string) *RootScope {
	return &RootScope{URI: uri, SessionID: uuid.NewString()}
}

// Kind implements Element.
func (*RootScope) Kind() Kind { return KindRoot }

// Variable is one displayable node of the tree. Variables are constructed
// fresh on every fetch and never mutated afterwards; the ID string is the
// only continuity a host can rely on across re-fetches of the same
// position.
type Variable struct {
	// ID is the stable identifier: the stringified provider handle, or for
	// range nodes the parent identifier with the range's start offset
	// appended.
	ID string
	// URI identifies the owning document.
	URI string
	// ExtHostID is the provider-assigned handle used to re-query the
	// provider for this node's children.
	ExtHostID int64
	// Name is the display name. Range nodes use the inclusive bracketed
	// form "[start..end]".
	Name string
	// Value is the display value; empty for synthetic range nodes.
	Value string
	// Type is an optional type label.
	Type string
	// IndexedCount is the number of positionally-indexed descendants
	// reachable through this node.
	IndexedCount int
	// IndexStart is non-nil only when the node denotes a partial range of
	// a larger indexed collection; it holds the absolute offset of the
	// range's first element.
	IndexStart *int
	// HasNamedChildren reports whether the node also has named
	// (non-indexed) children.
	HasNamedChildren bool
}

// Kind implements Element.
func (*Variable) Kind() Kind { return KindVariable }

// IsRange reports whether the variable is a synthetic range node covering
// a sub-block of a larger indexed collection.
func (v *Variable) IsRange() bool { return v.IndexStart != nil }

// startOffset is the absolute offset indexed enumeration starts at: the
// range's start for range nodes, 0 for full collections.
func (v *Variable) startOffset() int {
	if v.IndexStart == nil {
		return 0
	}
	return *v.IndexStart
}

// Result is one child entry as enumerated by a provider.
type Result struct {
	Handle           int64
	Name             string
	Value            string
	Type             string
	IndexedCount     int
	HasNamedChildren bool
}

// Provider enumerates the variables of a single document. Implementations
// live outside this package (kernel bridges, document inspectors); the
// engine only composes their named and indexed query modes.
type Provider interface {
	// CanProvideVariables reports whether the provider actually implements
	// variable enumeration. Providers without the capability are treated
	// the same as no provider at all.
	CanProvideVariables() bool

	// Provide enumerates children of handle in the given mode, starting at
	// offset start. Handle ScopeHandle addresses the document root. The
	// returned sequence is finite, consumed at most once, and must honor
	// ctx cancellation between elements; the engine may stop pulling
	// before exhaustion.
	Provide(ctx context.Context, uri string, handle int64, mode Mode, start int) (Seq, error)
}

// ProviderResolver yields the provider currently selected for a document,
// or nil when none is.
type ProviderResolver interface {
	For(uri string) Provider
}

// newVariable wraps one provider result as a displayable node owned by uri.
func newVariable(uri string, r Result) *Variable {
	return &Variable{
		ID:               strconv.FormatInt(r.Handle, 10),
		URI:              uri,
		ExtHostID:        r.Handle,
		Name:             r.Name,
		Value:            r.Value,
		Type:             r.Type,
		IndexedCount:     r.IndexedCount,
		HasNamedChildren: r.HasNamedChildren,
	}
}

// newRangeVariable synthesizes a node covering elements [start, end) of
// the indexed collection addressed by parent's handle. The identifier
// concatenates the parent identifier with the start offset, which is
// stable across re-fetches as long as the page size never changes within
// a view.
func newRangeVariable(parent *Variable, start, end int) *Variable {
	offset := start
	return &Variable{
		ID:           parent.ID + strconv.Itoa(start),
		URI:          parent.URI,
		ExtHostID:    parent.ExtHostID,
		Name:         fmt.Sprintf("[%d..%d]", start, end-1),
		IndexedCount: end - start,
		IndexStart:   &offset,
	}
}
