package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"ado-pulse/internal/azdo"
	"ado-pulse/internal/record"
	"ado-pulse/internal/search"
)

const defaultTrendDays = 30

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"summary":         s.engine.Summary(),
		"lastRefreshedAt": s.engine.LastRefreshedAt(),
	})
}

func (s *Server) handleTrend(w http.ResponseWriter, r *http.Request) {
	days := defaultTrendDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 365 {
			writeError(w, http.StatusBadRequest, "days must be an integer between 1 and 365")
			return
		}
		days = parsed
	}
	writeJSON(w, http.StatusOK, s.engine.Trend(days))
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	criteria := search.Criteria{
		Text:       q.Get("text"),
		ItemTypes:  splitMulti(q["type"]),
		States:     splitMulti(q["state"]),
		Priorities: splitMulti(q["priority"]),
		Assignee:   q.Get("assignee"),
	}

	results := s.engine.Search(criteria)
	writeJSON(w, http.StatusOK, map[string]any{
		"count":   len(results),
		"records": results,
	})
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	// Ids repeat across record families, so an optional kind disambiguates.
	kind := record.Kind(r.URL.Query().Get("kind"))
	switch kind {
	case "", record.KindWorkItem, record.KindTestResult:
	default:
		writeError(w, http.StatusBadRequest, "unknown record kind")
		return
	}

	raw, ok := s.engine.Raw(kind, r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "record not found")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(raw)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if !s.refreshMu.TryLock() {
		writeError(w, http.StatusConflict, "refresh already in progress")
		return
	}
	defer s.refreshMu.Unlock()

	result, err := s.engine.Refresh(r.Context())
	if err != nil {
		refreshesTotal.WithLabelValues("failure").Inc()

		var queryErr *azdo.QueryError
		if errors.As(err, &queryErr) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		// The previous snapshot keeps serving; tell the caller the refresh
		// itself failed.
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}

	refreshesTotal.WithLabelValues("success").Inc()
	datasetRecords.Set(float64(s.engine.DatasetSize()))
	malformedRecords.Add(float64(result.Failed))

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":          "ok",
		"datasetEmpty":    s.engine.DatasetSize() == 0,
		"lastRefreshedAt": s.engine.LastRefreshedAt(),
		"time":            time.Now().UTC(),
	})
}

// splitMulti accepts both repeated query params and comma-joined values.
func splitMulti(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
