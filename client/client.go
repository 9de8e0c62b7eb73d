// Package client implements PipelineClient, a thin HTTP client for
// cmd/pipelined's submission endpoint. Ported directly from the teacher's
// ArtifactStoreClient: same getApiJson/postApiJson shape, same
// retriable-vs-terminal error split, generalized from "create/close
// buckets and artifacts over several endpoints" to "post one submission
// and read back its disposition" since the pipeline exposes a single
// route instead of a REST resource tree.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/aodn/pipeline/model"
)

// ClientError mirrors the teacher's ArtifactsError: a retriable error is
// safe for the caller to retry (e.g. the server was briefly unreachable or
// returned 5xx); a terminal error means retrying would not help (a
// malformed request, or a 4xx rejection).
type ClientError struct {
	errStr    string
	retriable bool
}

func (e *ClientError) Error() string {
	return e.errStr
}

func (e *ClientError) IsRetriable() bool {
	return e.retriable
}

func NewRetriableError(errStr string) *ClientError {
	return &ClientError{retriable: true, errStr: errStr}
}

func NewRetriableErrorf(format string, args ...interface{}) *ClientError {
	return NewRetriableError(fmt.Sprintf(format, args...))
}

func NewTerminalError(errStr string) *ClientError {
	return &ClientError{retriable: false, errStr: errStr}
}

func NewTerminalErrorf(format string, args ...interface{}) *ClientError {
	return NewTerminalError(fmt.Sprintf(format, args...))
}

// PipelineClient submits inputs to a running cmd/pipelined server and
// reads back the resulting disposition.
type PipelineClient struct {
	server string
}

func NewPipelineClient(serverURL string) *PipelineClient {
	return &PipelineClient{server: serverURL}
}

func postApiJson(url string, params map[string]interface{}) (io.ReadCloser, *ClientError) {
	mJson, err := json.Marshal(params)
	if err != nil {
		// Marshalling is deterministic so retrying can't help.
		return nil, NewTerminalError(err.Error())
	}

	resp, err := http.Post(url, "application/json", bytes.NewReader(mJson))
	if err != nil {
		return nil, NewRetriableError(err.Error())
	}
	if resp.StatusCode != http.StatusOK {
		return nil, determineResponseError(resp, url, "POST")
	}
	return resp.Body, nil
}

// parseErrorForResponse extracts the "error" field from a JSON error body,
// ported verbatim from the teacher's parseErrorForResponse.
func parseErrorForResponse(body io.ReadCloser) (string, error) {
	var bJson map[string]string

	bText, err := ioutil.ReadAll(body)
	if err != nil {
		return "", err
	}
	body.Close()

	if err := json.Unmarshal(bText, &bJson); err != nil {
		return "", err
	}
	parseError, ok := bJson["error"]
	if !ok {
		return "", fmt.Errorf("response body did not contain error key")
	}
	return parseError, nil
}

// determineResponseError classifies a failed response as retriable or
// terminal by status code, ported verbatim from the teacher's
// determineResponseError.
func determineResponseError(resp *http.Response, url string, method string) *ClientError {
	parsedError, err := parseErrorForResponse(resp.Body)
	if err != nil {
		parsedError = fmt.Sprintf("unknown error, could not parse body: %s", err.Error())
	}
	if resp.StatusCode >= 500 {
		return NewRetriableErrorf("error %d [%s %s] %s", resp.StatusCode, method, url, parsedError)
	}
	return NewTerminalErrorf("error %d [%s %s] %s", resp.StatusCode, method, url, parsedError)
}

// submitResponse is the wire shape cmd/pipelined's /submit route returns,
// the JSON rendering of a model.PublishReport.
type submitResponse struct {
	Disposition string   `json:"disposition"`
	Stored      []string `json:"stored"`
	Overwrote   []string `json:"overwrote"`
	Archived    []string `json:"archived"`
	Harvested   []string `json:"harvested"`
	Failed      []string `json:"failed"`
}

// Submit posts handlerName/inputPath to the server's /submit route and
// parses the resulting PublishReport, the generalization of the teacher's
// NewBucket/NewChunkedArtifact request-then-parse-response pattern to a
// single submission round trip.
func (c *PipelineClient) Submit(handlerName, inputPath string) (*model.PublishReport, *ClientError) {
	body, err := postApiJson(c.server+"/submit", map[string]interface{}{
		"handler_name": handlerName,
		"input_path":   inputPath,
	})
	if err != nil {
		return nil, err
	}

	bText, readErr := ioutil.ReadAll(body)
	if readErr != nil {
		return nil, NewRetriableError(readErr.Error())
	}
	body.Close()

	var resp submitResponse
	if err := json.Unmarshal(bText, &resp); err != nil {
		return nil, NewTerminalError(err.Error())
	}

	return &model.PublishReport{
		Disposition: parseDisposition(resp.Disposition),
		Stored:      resp.Stored,
		Overwrote:   resp.Overwrote,
		Archived:    resp.Archived,
		Harvested:   resp.Harvested,
		Failed:      resp.Failed,
	}, nil
}

func parseDisposition(s string) model.Disposition {
	switch s {
	case "success":
		return model.DispositionSuccess
	case "check_failed":
		return model.DispositionCheckFailed
	case "failed":
		return model.DispositionFailed
	case "cancelled":
		return model.DispositionCancelled
	case "system_error":
		return model.DispositionSystemError
	default:
		return model.DispositionUnknown
	}
}
