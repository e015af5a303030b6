package vars

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceSeq(t *testing.T) {
	seq := SliceSeq(context.Background(), []Result{
		{Handle: 1, Name: "a"},
		{Handle: 2, Name: "b"},
	})

	r, ok, err := seq.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "a", r.Name)

	r, ok, err = seq.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "b", r.Name)

	_, ok, err = seq.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSliceSeq_HonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	seq := SliceSeq(ctx, []Result{{Handle: 1}, {Handle: 2}})

	_, ok, err := seq.Next()
	require.NoError(t, err)
	require.True(t, ok)

	cancel()

	_, ok, err = seq.Next()
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, ok)
}

func TestEmptySeq(t *testing.T) {
	_, ok, err := EmptySeq.Next()
	require.NoError(t, err)
	assert.False(t, ok)
}
