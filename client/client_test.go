package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aodn/pipeline/client/testserver"
	"github.com/aodn/pipeline/model"
)

func TestSubmitParsesSuccessfulDisposition(t *testing.T) {
	ts := testserver.NewTestServer(t)
	defer ts.CloseAndAssertExpectations()

	ts.ExpectAndRespond("POST", "/submit", 200,
		`{"disposition":"success","stored":["dest/a.nc"],"archived":[],"harvested":["dest/a.nc"],"failed":[]}`)

	c := NewPipelineClient(ts.URL)
	report, err := c.Submit("waves-ingest", "/incoming/a.nc")
	require.Nil(t, err)
	assert.Equal(t, model.DispositionSuccess, report.Disposition)
	assert.Equal(t, []string{"dest/a.nc"}, report.Stored)
}

func TestSubmitTerminalOnClientError(t *testing.T) {
	ts := testserver.NewTestServer(t)
	defer ts.CloseAndAssertExpectations()

	ts.ExpectAndRespond("POST", "/submit", 400, `{"error":"unknown handler"}`)

	c := NewPipelineClient(ts.URL)
	_, err := c.Submit("nonexistent", "/incoming/a.nc")
	require.NotNil(t, err)
	assert.False(t, err.IsRetriable())
	assert.Contains(t, err.Error(), "unknown handler")
}

func TestSubmitRetriableOnServerError(t *testing.T) {
	ts := testserver.NewTestServer(t)
	defer ts.CloseAndAssertExpectations()

	ts.ExpectAndRespond("POST", "/submit", 503, `{"error":"database unreachable"}`)

	c := NewPipelineClient(ts.URL)
	_, err := c.Submit("waves-ingest", "/incoming/a.nc")
	require.NotNil(t, err)
	assert.True(t, err.IsRetriable())
}
