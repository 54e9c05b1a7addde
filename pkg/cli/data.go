package cli

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/mchmarny/cryptorec/pkg/data"
	"github.com/mchmarny/cryptorec/pkg/kb"
	"github.com/mchmarny/cryptorec/pkg/rank"
	"github.com/mchmarny/cryptorec/pkg/score"
)

const (
	arraySelector = "|"
	maxBodyBytes  = 1 << 20
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func queryParamInt(r *http.Request, key string, def int) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func readBody(w http.ResponseWriter, r *http.Request) (*score.Requirements, bool) {
	req := &score.Requirements{}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid requirements: "+err.Error())
		return nil, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}
	return req, true
}

func (s *server) algorithmsAPIHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := rank.Explore(s.kb.Get(), rank.Filter{
		Search: q.Get("q"),
		Type:   q.Get("t"),
		Sort:   q.Get("s"),
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) algorithmAPIHandler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("k"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "algorithm key (k) required")
		return
	}
	a, err := s.kb.Get().GetAlgorithm(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, &rank.Entry{
		Algorithm:  *a,
		Key:        key,
		Deprecated: a.SecurityLevel < score.SecurityFloor,
	})
}

func (s *server) compareAPIHandler(w http.ResponseWriter, r *http.Request) {
	keys := strings.Split(r.URL.Query().Get("k"), arraySelector)
	c, err := rank.Compare(s.kb.Get(), keys)
	switch {
	case errors.Is(err, kb.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, c)
	}
}

func (s *server) standardsAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.kb.Get().Standards)
}

func (s *server) useCasesAPIHandler(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.kb.Get().UseCases)
}

func (s *server) recommendAPIHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := readBody(w, r)
	if !ok {
		return
	}

	rec, err := rank.Recommend(r.Context(), s.kb.Get(), req, s.opts)
	if err != nil {
		slog.Error("failed to rank algorithms", "error", err)
		writeError(w, http.StatusInternalServerError, "error ranking algorithms")
		return
	}

	if r.URL.Query().Get("save") == "true" {
		db, err := s.db()
		if err != nil {
			slog.Error("failed to open database", "error", err)
			writeError(w, http.StatusInternalServerError, "error opening history database")
			return
		}
		run := data.NewRun(rec)
		if err := data.SaveRun(r.Context(), db, run); err != nil {
			slog.Error("failed to save run", "error", err)
			writeError(w, http.StatusInternalServerError, "error saving run")
			return
		}
		rec.RunID = run.ID
	}

	top := ""
	if t := rec.Top(); t != nil {
		top = t.Key
	}
	s.metrics.recommended(top, rec.NoMatch)

	writeJSON(w, http.StatusOK, rec)
}

func (s *server) scoreAPIHandler(w http.ResponseWriter, r *http.Request) {
	key := strings.TrimSpace(r.URL.Query().Get("k"))
	if key == "" {
		writeError(w, http.StatusBadRequest, "algorithm key (k) required")
		return
	}

	b := s.kb.Get()
	a, err := b.GetAlgorithm(key)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	req, ok := readBody(w, r)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, score.Evaluate(key, a, req, b.Standards))
}

func (s *server) historyAPIHandler(w http.ResponseWriter, r *http.Request) {
	db, err := s.db()
	if err != nil {
		slog.Error("failed to open database", "error", err)
		writeError(w, http.StatusInternalServerError, "error opening history database")
		return
	}

	list, err := data.ListRuns(r.Context(), db, queryParamInt(r, "limit", data.DefaultListLimit))
	if err != nil {
		slog.Error("failed to list runs", "error", err)
		writeError(w, http.StatusInternalServerError, "error listing runs")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *server) runAPIHandler(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("id"))
	if id == "" {
		writeError(w, http.StatusBadRequest, "run id required")
		return
	}

	db, err := s.db()
	if err != nil {
		slog.Error("failed to open database", "error", err)
		writeError(w, http.StatusInternalServerError, "error opening history database")
		return
	}

	run, err := data.GetRun(r.Context(), db, id)
	switch {
	case errors.Is(err, data.ErrRunNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		slog.Error("failed to get run", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "error getting run")
	default:
		writeJSON(w, http.StatusOK, run)
	}
}
