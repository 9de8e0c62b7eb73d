package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aodn/pipeline/model"
)

func TestHTTPNotifierPostsPayload(t *testing.T) {
	var received notifyPayload

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	n := &HTTPNotifier{WebhookURL: server.URL}
	report := &model.PublishReport{
		Disposition: model.DispositionSuccess,
		Stored:      []string{"dest/a.nc"},
	}

	err := n.Send(context.Background(), report, []string{"ops@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "success", received.Disposition)
	assert.Equal(t, []string{"dest/a.nc"}, received.Stored)
	assert.Equal(t, []string{"ops@example.com"}, received.Recipients)
}

func TestHTTPNotifierTerminalOnClientError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"bad request"}`))
	}))
	defer server.Close()

	n := &HTTPNotifier{WebhookURL: server.URL}
	err := n.Send(context.Background(), &model.PublishReport{}, []string{"a@example.com"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad request")
}

func TestMultiNotifierContinuesPastFailure(t *testing.T) {
	failing := &HTTPNotifier{WebhookURL: "http://127.0.0.1:1", MaxElapsed: 50 * time.Millisecond}

	var called bool
	succeeding := notifierFunc(func(ctx context.Context, report *model.PublishReport, recipients []string) error {
		called = true
		return nil
	})

	m := &MultiNotifier{Notifiers: []Notifier{failing, succeeding}}
	err := m.Send(context.Background(), &model.PublishReport{}, nil)

	assert.Error(t, err, "the failing notifier's error should surface")
	assert.True(t, called, "a failure in one notifier must not stop the others from running")
}

type notifierFunc func(ctx context.Context, report *model.PublishReport, recipients []string) error

func (f notifierFunc) Send(ctx context.Context, report *model.PublishReport, recipients []string) error {
	return f(ctx, report, recipients)
}
