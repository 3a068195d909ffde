package azdo

import "encoding/json"

// wiqlResponse is the envelope of a structured-query response: matched
// work-item references only, details are fetched separately.
type wiqlResponse struct {
	WorkItems []workItemRef `json:"workItems"`
}

type workItemRef struct {
	ID int `json:"id"`
}

// valueList is the generic list envelope the tracker wraps collections in.
// Entries stay raw: the normalizer owns their interpretation and the original
// bytes ride along on the canonical record.
type valueList struct {
	Value []json.RawMessage `json:"value"`
}

// testRunList carries just enough of the run listing to fan out to the
// per-run results endpoint.
type testRunList struct {
	Value []testRunRef `json:"value"`
}

type testRunRef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}
