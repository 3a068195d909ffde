package azdo

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
)

const workItemBatchSize = 200

type restClient struct {
	cfg        Config
	httpClient *http.Client
	authHeader string

	// throttleMu guards lastRequest. Both record families fetch concurrently
	// through the one shared client, so the read-wait-write in throttle must
	// be a single critical section or parallel fetches would race past the
	// configured delay.
	throttleMu  sync.Mutex
	lastRequest time.Time
}

func newRESTClient(cfg Config) *restClient {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "7.0"
	}
	if cfg.RequestDelay == 0 {
		cfg.RequestDelay = 500 * time.Millisecond
	}
	return &restClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 90 * time.Second,
		},
		authHeader: "Basic " + base64.StdEncoding.EncodeToString([]byte(":"+cfg.PAT)),
	}
}

func (c *restClient) projectURL(path string) string {
	return fmt.Sprintf("%s/%s/%s%s",
		strings.TrimRight(c.cfg.BaseURL, "/"),
		url.PathEscape(c.cfg.Org),
		url.PathEscape(c.cfg.Project),
		path)
}

// throttle spaces consecutive requests by the configured delay. The lock is
// held across the wait so concurrent callers queue behind it instead of
// passing the rate limit together. A cancelled context aborts the wait.
func (c *restClient) throttle(ctx context.Context) error {
	c.throttleMu.Lock()
	defer c.throttleMu.Unlock()

	if wait := c.cfg.RequestDelay - time.Since(c.lastRequest); wait > 0 {
		log.Debug().Dur("wait", wait).Msg("Throttling tracker request")
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastRequest = time.Now()
	return nil
}

// doJSON performs one authenticated request and decodes the response into out.
// Connection-level failures and 5xx/429 responses are retried with exponential
// backoff; everything else maps straight to a TransportError.
func (c *restClient) doJSON(ctx context.Context, method, rawURL string, body []byte, out any) error {
	operation := func() error {
		if err := c.throttle(ctx); err != nil {
			return backoff.Permanent(&TransportError{Message: err.Error()})
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
		if err != nil {
			return backoff.Permanent(&TransportError{Message: err.Error()})
		}
		req.Header.Set("Authorization", c.authHeader)
		req.Header.Set("Accept", "application/json")
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			// Network-level failure, worth retrying.
			return &TransportError{Message: err.Error()}
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return backoff.Permanent(&TransportError{Message: "failed to decode tracker response: " + err.Error()})
			}
			return nil
		case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
			return backoff.Permanent(&TransportError{
				Status:  resp.StatusCode,
				Message: "tracker authentication failed, check the configured PAT",
			})
		case resp.StatusCode == http.StatusTooManyRequests:
			return &TransportError{Status: resp.StatusCode, Message: "tracker rate limit exceeded"}
		case resp.StatusCode >= 500:
			return &TransportError{
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("tracker returned status %d", resp.StatusCode),
			}
		default:
			return backoff.Permanent(&TransportError{
				Status:  resp.StatusCode,
				Message: fmt.Sprintf("tracker returned status %d", resp.StatusCode),
			})
		}
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	return backoff.Retry(operation, policy)
}

// FetchWorkItems runs the structured query and resolves the matched ids to
// full work-item structures in batches.
func (c *restClient) FetchWorkItems(ctx context.Context, spec QuerySpec) ([]json.RawMessage, error) {
	wiql := spec.WIQL()
	log.Info().Str("tag", spec.Tag).Msg("Requesting work items from tracker")
	log.Debug().Str("wiql", wiql).Msg("Work item query details")

	body, err := json.Marshal(map[string]string{"query": wiql})
	if err != nil {
		return nil, &TransportError{Message: err.Error()}
	}

	queryURL := c.projectURL("/_apis/wit/wiql?api-version=" + url.QueryEscape(c.cfg.APIVersion))
	var queryResp wiqlResponse
	if err := c.doJSON(ctx, http.MethodPost, queryURL, body, &queryResp); err != nil {
		return nil, err
	}
	if len(queryResp.WorkItems) == 0 {
		return nil, nil
	}

	ids := make([]string, len(queryResp.WorkItems))
	for i, ref := range queryResp.WorkItems {
		ids[i] = strconv.Itoa(ref.ID)
	}

	var items []json.RawMessage
	for start := 0; start < len(ids); start += workItemBatchSize {
		end := min(start+workItemBatchSize, len(ids))

		params := url.Values{}
		params.Set("ids", strings.Join(ids[start:end], ","))
		params.Set("api-version", c.cfg.APIVersion)
		params.Set("$expand", "all")

		var batch valueList
		detailURL := c.projectURL("/_apis/wit/workitems?" + params.Encode())
		if err := c.doJSON(ctx, http.MethodGet, detailURL, nil, &batch); err != nil {
			return nil, err
		}
		items = append(items, batch.Value...)
	}

	log.Info().Int("count", len(items)).Msg("Fetched work item details")
	return items, nil
}

// FetchTestResults lists test runs and collects the per-run result entries.
func (c *restClient) FetchTestResults(ctx context.Context, spec QuerySpec) ([]json.RawMessage, error) {
	params := url.Values{}
	params.Set("api-version", c.cfg.APIVersion)
	params.Set("includeRunDetails", "true")
	if c.cfg.PlanID != "" {
		params.Set("planId", c.cfg.PlanID)
	}

	log.Info().Msg("Requesting test runs from tracker")
	var runs testRunList
	runsURL := c.projectURL("/_apis/test/runs?" + params.Encode())
	if err := c.doJSON(ctx, http.MethodGet, runsURL, nil, &runs); err != nil {
		return nil, err
	}

	var results []json.RawMessage
	for _, run := range runs.Value {
		resultParams := url.Values{}
		resultParams.Set("api-version", c.cfg.APIVersion)
		resultParams.Set("includeIterationDetails", "true")

		var runResults valueList
		resultsURL := c.projectURL(fmt.Sprintf("/_apis/test/runs/%d/results?%s", run.ID, resultParams.Encode()))
		if err := c.doJSON(ctx, http.MethodGet, resultsURL, nil, &runResults); err != nil {
			return nil, err
		}
		results = append(results, runResults.Value...)
	}

	log.Info().Int("runs", len(runs.Value)).Int("results", len(results)).Msg("Fetched test results")
	return results, nil
}
