package yamlvars

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/varlens/pkg/vars"
)

const sampleDoc = `
name: experiment-4
epochs: 12
metrics:
  loss: 0.041
  accuracy: 0.97
samples:
  - alpha
  - beta
  - gamma
`

func drain(t *testing.T, seq vars.Seq) []vars.Result {
	t.Helper()
	var out []vars.Result
	for {
		r, ok, err := seq.Next()
		require.NoError(t, err)
		if !ok {
			return out
		}
		out = append(out, r)
	}
}

func TestProvide_ScopeNamed(t *testing.T) {
	p, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	seq, err := p.Provide(context.Background(), "nb://a", vars.ScopeHandle, vars.ModeNamed, 0)
	require.NoError(t, err)
	results := drain(t, seq)
	require.Len(t, results, 4)

	assert.Equal(t, "name", results[0].Name)
	assert.Equal(t, "experiment-4", results[0].Value)
	assert.Equal(t, "str", results[0].Type)

	assert.Equal(t, "epochs", results[1].Name)
	assert.Equal(t, "int", results[1].Type)

	assert.Equal(t, "metrics", results[2].Name)
	assert.Equal(t, "mapping", results[2].Type)
	assert.True(t, results[2].HasNamedChildren)
	assert.Zero(t, results[2].IndexedCount)

	assert.Equal(t, "samples", results[3].Name)
	assert.Equal(t, "sequence", results[3].Type)
	assert.Equal(t, 3, results[3].IndexedCount)
	assert.False(t, results[3].HasNamedChildren)
}

func TestProvide_Indexed(t *testing.T) {
	p, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	scope, err := p.Provide(context.Background(), "nb://a", vars.ScopeHandle, vars.ModeNamed, 0)
	require.NoError(t, err)
	results := drain(t, scope)
	samples := results[3]

	seq, err := p.Provide(context.Background(), "nb://a", samples.Handle, vars.ModeIndexed, 1)
	require.NoError(t, err)
	items := drain(t, seq)
	require.Len(t, items, 2)
	assert.Equal(t, "1", items[0].Name)
	assert.Equal(t, "beta", items[0].Value)
	assert.Equal(t, "2", items[1].Name)
	assert.Equal(t, "gamma", items[1].Value)
}

func TestProvide_StartBeyondEnd(t *testing.T) {
	p, err := Parse([]byte(`items: [1, 2]`))
	require.NoError(t, err)

	scope, err := p.Provide(context.Background(), "nb://a", vars.ScopeHandle, vars.ModeNamed, 0)
	require.NoError(t, err)
	results := drain(t, scope)

	seq, err := p.Provide(context.Background(), "nb://a", results[0].Handle, vars.ModeIndexed, 10)
	require.NoError(t, err)
	assert.Empty(t, drain(t, seq))
}

func TestProvide_UnknownHandle(t *testing.T) {
	p, err := Parse([]byte(`a: 1`))
	require.NoError(t, err)

	_, err = p.Provide(context.Background(), "nb://a", 999, vars.ModeNamed, 0)
	assert.Error(t, err)
}

func TestProvide_HonorsCancellation(t *testing.T) {
	p, err := Parse([]byte(sampleDoc))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	seq, err := p.Provide(ctx, "nb://a", vars.ScopeHandle, vars.ModeNamed, 0)
	require.NoError(t, err)

	_, ok, err := seq.Next()
	require.NoError(t, err)
	require.True(t, ok)

	cancel()

	_, _, err = seq.Next()
	assert.ErrorIs(t, err, context.Canceled)
}

func TestParse_TopLevelSequence(t *testing.T) {
	p, err := Parse([]byte("- a\n- b\n"))
	require.NoError(t, err)

	seq, err := p.Provide(context.Background(), "nb://a", vars.ScopeHandle, vars.ModeNamed, 0)
	require.NoError(t, err)
	results := drain(t, seq)
	require.Len(t, results, 1)
	assert.Equal(t, "document", results[0].Name)
	assert.Equal(t, 2, results[0].IndexedCount)
}

func TestParse_Alias(t *testing.T) {
	doc := `
base: &base
  retries: 3
derived: *base
`
	p, err := Parse([]byte(doc))
	require.NoError(t, err)

	scope, err := p.Provide(context.Background(), "nb://a", vars.ScopeHandle, vars.ModeNamed, 0)
	require.NoError(t, err)
	results := drain(t, scope)
	require.Len(t, results, 2)
	assert.True(t, results[1].HasNamedChildren, "alias resolves to the anchored mapping")
}

func TestParse_Invalid(t *testing.T) {
	_, err := Parse([]byte("a: [unclosed"))
	assert.Error(t, err)
}

func TestReload(t *testing.T) {
	p, err := Parse([]byte(`a: 1`))
	require.NoError(t, err)

	require.NoError(t, p.Reload([]byte("b: 2\nc: 3\n")))

	seq, err := p.Provide(context.Background(), "nb://a", vars.ScopeHandle, vars.ModeNamed, 0)
	require.NoError(t, err)
	results := drain(t, seq)
	require.Len(t, results, 2)
	assert.Equal(t, "b", results[0].Name)
}

func TestEndToEnd_WithSource(t *testing.T) {
	// Drive the provider through the lazy source the way hosts do.
	doc := `
rows:
`
	for i := 0; i < 12; i++ {
		doc += "  - " + string(rune('a'+i)) + "\n"
	}

	p, err := Parse([]byte(doc))
	require.NoError(t, err)

	reg := resolverFor{p}
	src := vars.NewSource(reg, 5, nil)
	scope := vars.NewRootScope("nb://a")

	top, err := src.GetChildren(context.Background(), scope)
	require.NoError(t, err)
	require.Len(t, top, 1)
	require.Equal(t, 12, top[0].IndexedCount)

	ranges, err := src.GetChildren(context.Background(), top[0])
	require.NoError(t, err)
	require.Len(t, ranges, 3) // ceil(12/5)
	assert.Equal(t, "[0..4]", ranges[0].Name)
	assert.Equal(t, "[5..9]", ranges[1].Name)
	assert.Equal(t, "[10..11]", ranges[2].Name)

	last, err := src.GetChildren(context.Background(), ranges[2])
	require.NoError(t, err)
	require.Len(t, last, 2)
	assert.Equal(t, "10", last[0].Name)
	assert.Equal(t, "k", last[0].Value)
}

// resolverFor selects one provider for every document.
type resolverFor struct{ p vars.Provider }

func (r resolverFor) For(string) vars.Provider { return r.p }
