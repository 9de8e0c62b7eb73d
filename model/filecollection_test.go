package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileCollectionPreservesInsertionOrder(t *testing.T) {
	c := NewFileCollection()
	require.NoError(t, c.Add(NewPipelineFile("/tmp/c.nc", "c.nc")))
	require.NoError(t, c.Add(NewPipelineFile("/tmp/a.nc", "a.nc")))
	require.NoError(t, c.Add(NewPipelineFile("/tmp/b.nc", "b.nc")))

	var got []string
	for _, f := range c.All() {
		got = append(got, f.SourcePath)
	}
	assert.Equal(t, []string{"c.nc", "a.nc", "b.nc"}, got)
}

func TestFileCollectionRejectsDuplicateLocalPath(t *testing.T) {
	c := NewFileCollection()
	require.NoError(t, c.Add(NewPipelineFile("/tmp/a.nc", "a.nc")))

	err := c.Add(NewPipelineFile("/tmp/a.nc", "a-again.nc"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateFile)
	assert.Equal(t, 1, c.Count())
	assert.Equal(t, "a.nc", c.Get("/tmp/a.nc").SourcePath)
}

func TestFileCollectionDiscardRemovesFromOrder(t *testing.T) {
	c := NewFileCollection()
	require.NoError(t, c.Add(NewPipelineFile("/tmp/a.nc", "a.nc")))
	require.NoError(t, c.Add(NewPipelineFile("/tmp/b.nc", "b.nc")))

	c.Discard("/tmp/a.nc")

	assert.Equal(t, 1, c.Count())
	assert.Nil(t, c.Get("/tmp/a.nc"))
	assert.Equal(t, "b.nc", c.All()[0].SourcePath)
}

func TestFilteredViewIsLiveNotASnapshot(t *testing.T) {
	c := NewFileCollection()
	require.NoError(t, c.Add(NewPipelineFile("/tmp/a.nc", "a.nc")))

	view := c.Filter(func(f *PipelineFile) bool {
		return strings.HasSuffix(f.SourcePath, ".nc")
	})
	assert.Equal(t, 1, view.Count())

	require.NoError(t, c.Add(NewPipelineFile("/tmp/b.nc", "b.nc")))
	require.NoError(t, c.Add(NewPipelineFile("/tmp/c.csv", "c.csv")))

	assert.Equal(t, 2, view.Count(), "the view must reflect additions made after it was built")
}

func TestFilteredViewComposesPredicates(t *testing.T) {
	c := NewFileCollection()
	stored := NewPipelineFile("/tmp/a.nc", "a.nc")
	stored.IsStored = true
	require.NoError(t, c.Add(stored))
	require.NoError(t, c.Add(NewPipelineFile("/tmp/b.nc", "b.nc")))

	view := c.Filter(func(f *PipelineFile) bool {
		return strings.HasSuffix(f.SourcePath, ".nc")
	}).Filter(func(f *PipelineFile) bool {
		return !f.IsStored
	})

	files := view.All()
	require.Len(t, files, 1)
	assert.Equal(t, "b.nc", files[0].SourcePath)
}

func TestSlicesPartitionsInOrder(t *testing.T) {
	c := NewFileCollection()
	require.NoError(t, c.Add(NewPipelineFile("/tmp/a.nc", "a.nc")))
	require.NoError(t, c.Add(NewPipelineFile("/tmp/b.nc", "b.nc")))
	require.NoError(t, c.Add(NewPipelineFile("/tmp/c.nc", "c.nc")))

	slices := c.Filter(nil).Slices(2)
	require.Len(t, slices, 2)
	assert.Equal(t, 2, slices[0].Count())
	assert.Equal(t, 1, slices[1].Count())
	assert.Equal(t, "a.nc", slices[0].All()[0].SourcePath)
	assert.Equal(t, "c.nc", slices[1].All()[0].SourcePath)
}
