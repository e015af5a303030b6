// Package yamlvars exposes the structure of a YAML document as a variable
// tree: mappings contribute named children, sequences contribute indexed
// children, scalars are leaves. It is the built-in provider behind the
// dump/explore commands and file-backed documents served over RPC.
package yamlvars

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/leapstack-labs/varlens/pkg/vars"
)

// Provider implements vars.Provider over one parsed YAML document.
// Reload swaps the whole handle table, so handles issued before a reload
// are no longer valid afterwards.
type Provider struct {
	mu      sync.RWMutex
	entries map[int64]*entry
}

// entry is one addressable node of the parsed document.
type entry struct {
	result  vars.Result
	named   []int64
	indexed []int64
}

// Parse builds a provider from YAML content.
func Parse(content []byte) (*Provider, error) {
	entries, err := buildTable(content)
	if err != nil {
		return nil, err
	}
	return &Provider{entries: entries}, nil
}

// Load builds a provider from a YAML file on disk.
func Load(path string) (*Provider, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("yamlvars: read %s: %w", path, err)
	}
	p, err := Parse(content)
	if err != nil {
		return nil, fmt.Errorf("yamlvars: parse %s: %w", path, err)
	}
	return p, nil
}

// Reload replaces the provider's document. Previously issued handles become
// invalid; hosts are expected to re-fetch from the root afterwards.
func (p *Provider) Reload(content []byte) error {
	entries, err := buildTable(content)
	if err != nil {
		return err
	}

	p.mu.Lock()
	p.entries = entries
	p.mu.Unlock()
	return nil
}

// CanProvideVariables implements vars.Provider.
func (p *Provider) CanProvideVariables() bool { return true }

// Provide implements vars.Provider. The returned sequence checks ctx
// between pulls and stops with its error once cancelled.
func (p *Provider) Provide(ctx context.Context, uri string, handle int64, mode vars.Mode, start int) (vars.Seq, error) {
	p.mu.RLock()
	e, ok := p.entries[handle]
	entries := p.entries
	p.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("yamlvars: unknown handle %d", handle)
	}

	var children []int64
	switch mode {
	case vars.ModeNamed:
		children = e.named
	case vars.ModeIndexed:
		children = e.indexed
	default:
		return nil, fmt.Errorf("yamlvars: unknown mode %q", mode)
	}

	if start < 0 || start > len(children) {
		return vars.EmptySeq, nil
	}
	children = children[start:]

	i := 0
	return vars.SeqFunc(func() (vars.Result, bool, error) {
		if err := ctx.Err(); err != nil {
			return vars.Result{}, false, err
		}
		if i >= len(children) {
			return vars.Result{}, false, nil
		}
		child := entries[children[i]]
		i++
		return child.result, true, nil
	}), nil
}

// buildTable parses content and assigns a handle to every addressable node.
// The document root always occupies vars.ScopeHandle.
func buildTable(content []byte) (map[int64]*entry, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("yamlvars: %w", err)
	}

	b := &builder{entries: map[int64]*entry{
		vars.ScopeHandle: {},
	}}

	root := &doc
	if root.Kind == yaml.DocumentNode {
		if len(root.Content) == 0 {
			return b.entries, nil
		}
		root = root.Content[0]
	}

	scope := b.entries[vars.ScopeHandle]
	if deref(root).Kind == yaml.MappingNode {
		// Top-level mapping keys become the document's variables.
		b.addMappingChildren(scope, deref(root))
	} else {
		scope.named = append(scope.named, b.add("document", root))
	}
	return b.entries, nil
}

type builder struct {
	entries map[int64]*entry
	next    int64
}

// add registers node under name and returns its handle. Children are
// registered recursively so handles stay stable between queries against the
// same parse.
func (b *builder) add(name string, node *yaml.Node) int64 {
	node = deref(node)
	b.next++
	handle := b.next

	e := &entry{result: vars.Result{Handle: handle, Name: name}}
	b.entries[handle] = e

	switch node.Kind {
	case yaml.MappingNode:
		fields := len(node.Content) / 2
		e.result.Value = fmt.Sprintf("{%d fields}", fields)
		e.result.Type = "mapping"
		b.addMappingChildren(e, node)

	case yaml.SequenceNode:
		e.result.Value = fmt.Sprintf("[%d items]", len(node.Content))
		e.result.Type = "sequence"
		for i, item := range node.Content {
			e.indexed = append(e.indexed, b.add(strconv.Itoa(i), item))
		}
		e.result.IndexedCount = len(e.indexed)

	default:
		e.result.Value = node.Value
		e.result.Type = scalarType(node)
	}

	return handle
}

// addMappingChildren registers every key/value pair of node as a named
// child of e, in document order.
func (b *builder) addMappingChildren(e *entry, node *yaml.Node) {
	for i := 0; i+1 < len(node.Content); i += 2 {
		key := node.Content[i]
		value := node.Content[i+1]
		e.named = append(e.named, b.add(key.Value, value))
	}
	e.result.HasNamedChildren = len(e.named) > 0
}

// deref follows alias nodes to their anchors.
func deref(node *yaml.Node) *yaml.Node {
	for node.Kind == yaml.AliasNode && node.Alias != nil {
		node = node.Alias
	}
	return node
}

// scalarType reduces a yaml tag like "!!str" to a display label.
func scalarType(node *yaml.Node) string {
	return strings.TrimPrefix(node.Tag, "!!")
}
