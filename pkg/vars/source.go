package vars

import (
	"context"
	"fmt"
	"log/slog"
)

// Source lazily materializes the variable tree of documents. HasChildren
// answers from counts already embedded in a node, so hosts can draw expand
// affordances without any I/O; GetChildren performs the actual provider
// queries for one level of the tree.
//
// A Source is safe for concurrent expansion of different nodes. A single
// node's named and indexed fetches are sequential, never concurrent.
type Source struct {
	resolver ProviderResolver
	tokens   *CancelManager
	pageSize int
	logger   *slog.Logger
}

// NewSource creates a source resolving providers through resolver.
// pageSize <= 0 selects DefaultPageSize. The page size is fixed for the
// lifetime of the source: range-node identifiers are derived from block
// offsets, so changing it between fetches of the same node would let
// identifiers collide across different ranges.
func NewSource(resolver ProviderResolver, pageSize int, logger *slog.Logger) *Source {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Source{
		resolver: resolver,
		tokens:   NewCancelManager(),
		pageSize: pageSize,
		logger:   logger,
	}
}

// PageSize is the upper bound on nodes returned by a single GetChildren
// call.
func (s *Source) PageSize() int { return s.pageSize }

// HasChildren reports whether el is expandable. It is pure: the answer
// comes from counts carried by the element, never from a provider query.
// The root scope is always expandable.
func (s *Source) HasChildren(el Element) bool {
	switch el := el.(type) {
	case *RootScope:
		return true
	case *Variable:
		return el.HasNamedChildren || el.IndexedCount > 0
	default:
		return false
	}
}

// Cancel revokes the view's current cancellation handle. In-flight provider
// queries are signalled to abandon work; fetches issued afterwards run
// under a fresh handle and complete normally.
func (s *Source) Cancel() { s.tokens.Cancel() }

// GetChildren produces the next level of the tree under el: all named
// children first, in provider order, then all indexed children or range
// nodes in ascending offset order. Documents with no selected provider, or
// whose provider lacks the variables capability, yield an empty result
// rather than an error.
func (s *Source) GetChildren(ctx context.Context, el Element) ([]*Variable, error) {
	switch el := el.(type) {
	case *RootScope:
		return s.rootChildren(ctx, el)
	case *Variable:
		return s.nodeChildren(ctx, el)
	default:
		return nil, fmt.Errorf("vars: unknown element kind %q", el.Kind())
	}
}

// rootChildren enumerates the document's top-level variables: one named
// query against the whole-document scope, every result wrapped.
func (s *Source) rootChildren(ctx context.Context, scope *RootScope) ([]*Variable, error) {
	p := s.provider(scope.URI)
	if p == nil {
		return nil, nil
	}

	results, err := s.collect(ctx, p, scope.URI, ScopeHandle, ModeNamed, 0, 0)
	if err != nil {
		return nil, err
	}

	children := make([]*Variable, 0, len(results))
	for _, r := range results {
		children = append(children, newVariable(scope.URI, r))
	}
	return children, nil
}

// nodeChildren enumerates one variable's children: named children first,
// then indexed children resolved through pagination.
func (s *Source) nodeChildren(ctx context.Context, v *Variable) ([]*Variable, error) {
	p := s.provider(v.URI)
	if p == nil {
		return nil, nil
	}

	var children []*Variable

	if v.HasNamedChildren {
		results, err := s.collect(ctx, p, v.URI, v.ExtHostID, ModeNamed, 0, 0)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			children = append(children, newVariable(v.URI, r))
		}
	}

	switch {
	case v.IndexedCount > s.pageSize:
		// Too large to enumerate in one page: no provider query at all,
		// just one range node per block. Expanding a range node re-enters
		// this method with a smaller count, subdividing until every leaf
		// range fits in a single page.
		children = append(children, s.splitRanges(v)...)

	case v.IndexedCount > 0:
		results, err := s.collect(ctx, p, v.URI, v.ExtHostID, ModeIndexed, v.startOffset(), s.pageSize)
		if err != nil {
			return nil, err
		}
		for _, r := range results {
			children = append(children, newVariable(v.URI, r))
		}
	}

	return children, nil
}

// splitRanges synthesizes one range node per pageSize-sized block of v's
// indexed collection; the final block may be shorter. Offsets are absolute,
// so subdividing a range node keeps addressing the original collection.
func (s *Source) splitRanges(v *Variable) []*Variable {
	base := v.startOffset()
	out := make([]*Variable, 0, (v.IndexedCount+s.pageSize-1)/s.pageSize)
	for off := 0; off < v.IndexedCount; off += s.pageSize {
		end := min(off+s.pageSize, v.IndexedCount)
		out = append(out, newRangeVariable(v, base+off, base+end))
	}
	return out
}

// collect issues one provider query and drains its sequence into a slice,
// stopping after limit results when limit > 0. The query context binds the
// cancellation handle current at issue time on top of the caller's ctx.
func (s *Source) collect(ctx context.Context, p Provider, uri string, handle int64, mode Mode, start, limit int) ([]Result, error) {
	qctx, release := s.tokens.Bind(ctx)
	defer release()

	seq, err := p.Provide(qctx, uri, handle, mode, start)
	if err != nil {
		return nil, err
	}

	var out []Result
	for limit <= 0 || len(out) < limit {
		r, ok, err := seq.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		out = append(out, r)
	}
	return out, nil
}

// provider resolves the document's provider, treating a missing provider
// and a provider without the variables capability identically.
func (s *Source) provider(uri string) Provider {
	if s.resolver == nil {
		return nil
	}
	p := s.resolver.For(uri)
	if p == nil {
		s.logger.Debug("no variables provider selected", "uri", uri)
		return nil
	}
	if !p.CanProvideVariables() {
		s.logger.Debug("selected provider cannot provide variables", "uri", uri)
		return nil
	}
	return p
}
