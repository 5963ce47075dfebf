package http

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/metrics"
)

// multipart framing allowance on top of the archive limit
const formOverhead = 1 << 20

type inspectResp struct {
	Archive string          `json:"archive"`
	Entries []archive.Entry `json:"entries"`
	Outcome archive.Outcome `json:"outcome"`
}

// readUpload pulls the "file" part of a multipart body into memory, refusing
// anything larger than maxBytes. It writes the error response itself.
func readUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (string, []byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+formOverhead)
	f, hdr, err := r.FormFile("file")
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			http.Error(w, "archive too large", http.StatusRequestEntityTooLarge)
			return "", nil, false
		}
		http.Error(w, "file required", http.StatusBadRequest)
		return "", nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		http.Error(w, "read upload: "+err.Error(), http.StatusBadRequest)
		return "", nil, false
	}
	if int64(len(data)) > maxBytes {
		http.Error(w, "archive too large", http.StatusRequestEntityTooLarge)
		return "", nil, false
	}
	return hdr.Filename, data, true
}

// POST /archives/inspect?category=CODING_QUESTIONS (multipart: file=archive.zip)
//
// Stateless: lists and validates the archive without touching any session.
// Archive problems are reported in the outcome, not as HTTP errors.
func InspectArchiveHandler(maxBytes int64, timeout time.Duration, m metrics.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cat, err := content.ParseCategory(strings.TrimSpace(r.URL.Query().Get("category")))
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		name, data, ok := readUpload(w, r, maxBytes)
		if !ok {
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), timeout)
		defer cancel()
		start := time.Now()
		entries, err := archive.InspectContext(ctx, data)
		var outcome archive.Outcome
		if err != nil {
			outcome = archive.ReadFailure(err)
		} else {
			outcome = archive.Validate(entries, cat)
		}
		m.ObserveInspection(string(cat), string(outcome.Reason), time.Since(start).Seconds())

		if entries == nil {
			entries = []archive.Entry{}
		}
		writeJSON(w, http.StatusOK, inspectResp{Archive: name, Entries: entries, Outcome: outcome})
	}
}

// GET /targets
func TargetsHandler(table content.TargetTable) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, table)
	}
}
