package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aodn/pipeline/handler"
	"github.com/aodn/pipeline/harvest"
	"github.com/aodn/pipeline/model"
)

func TestPathFunctionRegistryRegisterAndGet(t *testing.T) {
	r := NewPathFunctionRegistry()
	r.Register("identity", func(f *model.PipelineFile) string { return f.SourcePath })

	fn, ok := r.Get("identity")
	require.True(t, ok)
	assert.Equal(t, "a.nc", fn(model.NewPipelineFile("/tmp/a.nc", "a.nc")))

	_, ok = r.Get("missing")
	assert.False(t, ok)
}

func TestHarvesterRegistryBuildFailsForUnknownName(t *testing.T) {
	r := NewHarvesterRegistry()
	_, err := r.Build("unknown", nil)
	assert.Error(t, err)
}

func TestHarvesterRegistryBuildInvokesFactory(t *testing.T) {
	r := NewHarvesterRegistry()
	r.Register("waves", func(config map[string]string) (harvest.HarvesterRunner, error) {
		return &harvest.SQLHarvesterRunner{HarvesterName: "waves", Table: config["table"]}, nil
	})

	runner, err := r.Build("waves", map[string]string{"table": "waves_obs"})
	require.NoError(t, err)
	assert.Equal(t, "waves", runner.Name())
}

func TestHandlerRegistryRegisterAndGet(t *testing.T) {
	r := NewHandlerRegistry()
	h := &handler.Handler{Name: "csv-ingest"}
	r.Register("csv-ingest", h)

	got, ok := r.Get("csv-ingest")
	require.True(t, ok)
	assert.Same(t, h, got)

	_, ok = r.Get("missing")
	assert.False(t, ok)
}
