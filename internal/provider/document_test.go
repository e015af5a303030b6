package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDocumentStore_OpenAndGet(t *testing.T) {
	store := NewDocumentStore()
	store.Open("nb://a", "a: 1", 1)

	doc := store.Get("nb://a")
	require.NotNil(t, doc)
	assert.Equal(t, "nb://a", doc.URI)
	assert.Equal(t, "a: 1", doc.Content)
	assert.Equal(t, 1, doc.Version)
}

func TestDocumentStore_GetMissing(t *testing.T) {
	store := NewDocumentStore()
	assert.Nil(t, store.Get("nb://missing"))
}

func TestDocumentStore_Update(t *testing.T) {
	store := NewDocumentStore()
	store.Open("nb://a", "a: 1", 1)

	assert.True(t, store.Update("nb://a", "a: 2", 2))
	assert.Equal(t, "a: 2", store.Get("nb://a").Content)
	assert.Equal(t, 2, store.Get("nb://a").Version)
}

func TestDocumentStore_UpdateStaleVersion(t *testing.T) {
	store := NewDocumentStore()
	store.Open("nb://a", "a: 2", 2)

	assert.False(t, store.Update("nb://a", "a: 1", 1))
	assert.Equal(t, "a: 2", store.Get("nb://a").Content)
}

func TestDocumentStore_UpdateUnopened(t *testing.T) {
	store := NewDocumentStore()
	assert.False(t, store.Update("nb://a", "a: 1", 1))
}

func TestDocumentStore_Close(t *testing.T) {
	store := NewDocumentStore()
	store.Open("nb://a", "", 1)
	store.Open("nb://b", "", 1)

	store.Close("nb://a")

	assert.Nil(t, store.Get("nb://a"))
	assert.ElementsMatch(t, []string{"nb://b"}, store.List())
}
