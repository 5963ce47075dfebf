package http

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-loader/internal/audit"
	authmw "github.com/mind-engage/mindengage-loader/internal/auth/middleware"
	"github.com/mind-engage/mindengage-loader/internal/form"
	"github.com/mind-engage/mindengage-loader/internal/handoff"
	"github.com/mind-engage/mindengage-loader/internal/metrics"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

type handoffResp struct {
	handoff.Result
	ID string `json:"id"`
}

// POST /sessions/{id}/handoff
//
// The gateway cannot reach the operator's clipboard, so it returns the exact
// text to copy together with the admin page to open afterwards.
func HandoffHandler(store session.Store, hist audit.Log, m metrics.Metrics, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		cat, p, pending := s.Payload()
		env := s.Environment()
		res, err := handoff.Prepare(cat, p, pending, s.Targets())
		if err != nil {
			var inc *form.Incomplete
			if errors.As(err, &inc) {
				m.IncHandoff(string(cat), string(env), "incomplete")
			} else {
				m.IncHandoff(string(cat), string(env), "invalid")
				log.Error("payload failed schema check", zap.String("session", s.ID), zap.Error(err))
			}
			writeErr(w, err)
			return
		}

		op, _ := authmw.OperatorFromContext(r.Context())
		entry, err := hist.Append(r.Context(), audit.Entry{
			Operator:    op.Subject,
			Category:    string(cat),
			Environment: string(env),
			Payload:     res.Text,
			AdminURL:    res.AdminURL,
		})
		if err != nil {
			// the payload is still valid; history is best effort
			log.Warn("handoff log append failed", zap.String("session", s.ID), zap.Error(err))
		}
		m.IncHandoff(string(cat), string(env), "ok")
		log.Info("payload handed off",
			zap.String("session", s.ID),
			zap.String("category", string(cat)),
			zap.String("environment", string(env)))
		writeJSON(w, http.StatusOK, handoffResp{Result: res, ID: entry.ID})
	}
}

// GET /handoffs?limit=20
func HistoryHandler(hist audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntDefault(r.URL.Query().Get("limit"), 20)
		list, err := hist.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, "history: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if list == nil {
			list = []audit.Entry{}
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	if v, err := strconv.Atoi(s); err == nil && v >= 0 {
		return v
	}
	return def
}
