package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff"

	"github.com/aodn/pipeline/model"
	"github.com/aodn/pipeline/pipelineerr"
)

// HTTPNotifier posts a PublishReport as JSON to a configured webhook,
// ported directly from the teacher's client.ArtifactStoreClient
// postApiJson/determineResponseError pattern: a transport error or a 5xx
// response is retried with cenkalti/backoff; any other non-200 response is
// terminal.
type HTTPNotifier struct {
	WebhookURL string
	HTTPClient *http.Client
	MaxElapsed time.Duration
}

type notifyPayload struct {
	Disposition string   `json:"disposition"`
	Recipients  []string `json:"recipients"`
	Stored      []string `json:"stored"`
	Overwrote   []string `json:"overwrote"`
	Archived    []string `json:"archived"`
	Harvested   []string `json:"harvested"`
	Failed      []string `json:"failed"`
}

func (n *HTTPNotifier) client() *http.Client {
	if n.HTTPClient != nil {
		return n.HTTPClient
	}
	return http.DefaultClient
}

func (n *HTTPNotifier) Send(ctx context.Context, report *model.PublishReport, recipients []string) error {
	body, err := json.Marshal(notifyPayload{
		Disposition: report.Disposition.String(),
		Recipients:  recipients,
		Stored:      report.Stored,
		Overwrote:   report.Overwrote,
		Archived:    report.Archived,
		Harvested:   report.Harvested,
		Failed:      report.Failed,
	})
	if err != nil {
		// Marshalling is deterministic; retrying can't help.
		return pipelineerr.WrapHandlerHookError(err)
	}

	b := backoff.NewExponentialBackOff()
	if n.MaxElapsed > 0 {
		b.MaxElapsedTime = n.MaxElapsed
	}

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := n.client().Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusOK {
			return nil
		}

		respErr := determineResponseError(resp, n.WebhookURL)
		if resp.StatusCode >= 500 {
			return respErr
		}
		return backoff.Permanent(respErr)
	}, b)
}

// determineResponseError mirrors the teacher's determineResponseError: a
// descriptive error naming the status code, method, and URL, with the
// response body's "error" field folded in where present.
func determineResponseError(resp *http.Response, url string) error {
	var parsed struct {
		Error string `json:"error"`
	}
	bodyText, readErr := io.ReadAll(resp.Body)
	if readErr == nil {
		_ = json.Unmarshal(bodyText, &parsed)
	}
	if parsed.Error == "" {
		parsed.Error = "no error detail in response body"
	}
	return fmt.Errorf("notify webhook error %d [POST %s] %s", resp.StatusCode, url, parsed.Error)
}

var _ Notifier = (*HTTPNotifier)(nil)
