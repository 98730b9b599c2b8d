package api

import (
	"net/http"
	"strconv"
	"strings"
)

// KarmaReader exposes scores for reading.
type KarmaReader interface {
	Entries() []Entry
	Get(term string) int64
}

// KarmaHandler handles score requests.
type KarmaHandler struct {
	deps     KarmaReader
	maxLimit int
}

// NewKarmaHandler creates a new karma handler.
func NewKarmaHandler(deps KarmaReader, maxLimit int) *KarmaHandler {
	return &KarmaHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleList handles GET /karma and GET /karma?limit=N requests.
// Entries are ordered by score, highest first.
func (h *KarmaHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_karma"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}

	entries := h.deps.Entries()
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		n, err := strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", NewKind(op, ErrBadRequest))
			return
		}
		if n < len(entries) {
			entries = entries[:n]
		}
	}
	if entries == nil {
		entries = []Entry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// HandleTerm handles GET /karma/{term} requests. Unknown terms score zero.
func (h *KarmaHandler) HandleTerm(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_karma"
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	term := strings.TrimPrefix(r.URL.Path, "/karma/")
	if strings.TrimSpace(term) == "" || strings.Contains(term, "/") {
		writeError(w, http.StatusBadRequest, "bad_request", NewKind(op, ErrBadRequest))
		return
	}
	writeJSON(w, http.StatusOK, Entry{Term: term, Score: h.deps.Get(term)})
}
