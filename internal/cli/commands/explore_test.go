package commands

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/varlens/internal/provider"
	"github.com/leapstack-labs/varlens/internal/provider/yamlvars"
	"github.com/leapstack-labs/varlens/pkg/vars"
)

// newTestExploreModel builds a model over an in-memory document with a
// small page size so range nodes appear.
func newTestExploreModel(t *testing.T) *exploreModel {
	t.Helper()

	doc := "name: run\nitems:\n"
	for i := 0; i < 7; i++ {
		doc += "  - x\n"
	}
	prov, err := yamlvars.Parse([]byte(doc))
	require.NoError(t, err)

	registry := provider.NewRegistry(nil)
	registry.Register("nb://t", prov)
	return newExploreModel("nb://t", vars.NewSource(registry, 3, nil))
}

// run executes a command synchronously and feeds its message back into the
// model, the way the bubbletea runtime would.
func run(t *testing.T, m *exploreModel, cmd tea.Cmd) {
	t.Helper()
	for cmd != nil {
		msg := cmd()
		require.NotNil(t, msg)
		if errMsg, ok := msg.(fetchErrMsg); ok {
			t.Fatalf("fetch failed: %v", errMsg.err)
		}
		_, cmd = m.Update(msg)
	}
}

func TestExplore_InitLoadsRoot(t *testing.T) {
	m := newTestExploreModel(t)
	run(t, m, m.Init())

	require.Len(t, m.rows, 2)
	assert.Equal(t, "name", m.rows[0].v.Name)
	assert.Equal(t, "items", m.rows[1].v.Name)
	assert.False(t, m.loading)
}

func TestExplore_ExpandShowsRangeNodes(t *testing.T) {
	m := newTestExploreModel(t)
	run(t, m, m.Init())

	m.cursor = 1 // "items", 7 elements, page size 3
	run(t, m, m.toggle())

	require.Len(t, m.rows, 5)
	assert.Equal(t, "[0..2]", m.rows[2].v.Name)
	assert.Equal(t, "[3..5]", m.rows[3].v.Name)
	assert.Equal(t, "[6..6]", m.rows[4].v.Name)
	assert.Equal(t, 1, m.rows[2].depth)
}

func TestExplore_ExpandRangeFetchesElements(t *testing.T) {
	m := newTestExploreModel(t)
	run(t, m, m.Init())
	m.cursor = 1
	run(t, m, m.toggle())

	m.cursor = 4 // "[6..6]"
	run(t, m, m.toggle())

	require.Len(t, m.rows, 6)
	assert.Equal(t, "6", m.rows[5].v.Name)
	assert.Equal(t, 2, m.rows[5].depth)
}

func TestExplore_CollapseRemovesDescendants(t *testing.T) {
	m := newTestExploreModel(t)
	run(t, m, m.Init())
	m.cursor = 1
	run(t, m, m.toggle())
	require.Len(t, m.rows, 5)

	run(t, m, m.toggle())

	require.Len(t, m.rows, 2)
	assert.False(t, m.rows[1].expanded)
}

func TestExplore_ToggleLeafIsNoop(t *testing.T) {
	m := newTestExploreModel(t)
	run(t, m, m.Init())

	m.cursor = 0 // scalar "name"
	assert.Nil(t, m.toggle())
	assert.Len(t, m.rows, 2)
}

func TestExplore_StaleFetchDropped(t *testing.T) {
	m := newTestExploreModel(t)
	run(t, m, m.Init())

	// A fetch landing after its parent was collapsed must not insert rows.
	m.cursor = 1
	cmd := m.toggle()
	m.rows[1].expanded = false

	msg := cmd()
	_, _ = m.Update(msg)
	assert.Len(t, m.rows, 2)
}

func TestExplore_ViewRendersRows(t *testing.T) {
	m := newTestExploreModel(t)
	run(t, m, m.Init())

	view := m.View()
	assert.Contains(t, view, "nb://t")
	assert.Contains(t, view, "name")
	assert.Contains(t, view, "items")
}
