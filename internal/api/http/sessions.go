package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-loader/internal/archive"
	"github.com/mind-engage/mindengage-loader/internal/content"
	"github.com/mind-engage/mindengage-loader/internal/payload"
	"github.com/mind-engage/mindengage-loader/internal/session"
)

type selectionReq struct {
	Category    string `json:"category"`
	Environment string `json:"environment"`
}

type archiveResp struct {
	Archive string           `json:"archive"`
	Stale   bool             `json:"stale,omitempty"`
	Outcome *archive.Outcome `json:"outcome,omitempty"`
	Session session.View     `json:"session"`
}

func loadSession(store session.Store, w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return nil, false
	}
	s, err := store.Get(id)
	if err != nil {
		writeErr(w, err)
		return nil, false
	}
	return s, true
}

// POST /sessions  { "category": "MCQ", "environment": "PROD" }
func CreateSessionHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		cat, err := content.ParseCategory(req.Category)
		if err != nil {
			writeErr(w, err)
			return
		}
		env := content.Prod
		if strings.TrimSpace(req.Environment) != "" {
			if env, err = content.ParseEnvironment(req.Environment); err != nil {
				writeErr(w, err)
				return
			}
		}
		s, err := store.Create(cat, env)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, s.View())
	}
}

// GET /sessions
func ListSessionsHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, store.List())
	}
}

// GET /sessions/{id}
func GetSessionHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, s.View())
	}
}

// PUT /sessions/{id}/selection  { "category": "...", "environment": "..." }
// An omitted field keeps its current value. Any change resets the form.
func SwitchSelectionHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		var req selectionReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		cat, env := s.Category(), s.Environment()
		var err error
		if strings.TrimSpace(req.Category) != "" {
			if cat, err = content.ParseCategory(req.Category); err != nil {
				writeErr(w, err)
				return
			}
		}
		if strings.TrimSpace(req.Environment) != "" {
			if env, err = content.ParseEnvironment(req.Environment); err != nil {
				writeErr(w, err)
				return
			}
		}
		changed, err := s.Switch(cat, env)
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"reset": changed, "session": s.View()})
	}
}

// DELETE /sessions/{id}
func DeleteSessionHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Delete(chi.URLParam(r, "id")); err != nil {
			writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// POST /sessions/{id}/archive[?wait=1] (multipart: file=archive.zip)
//
// Without wait the inspection runs in the background and the response is 202;
// poll the session for the outcome. With wait the response carries the
// outcome, or stale=true when a newer selection superseded this one.
func SelectArchiveHandler(store session.Store, maxBytes int64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		name, data, ok := readUpload(w, r, maxBytes)
		if !ok {
			return
		}
		in, err := s.SelectArchive(name, data)
		if err != nil {
			writeErr(w, err)
			return
		}
		if !isTruthy(r.URL.Query().Get("wait")) {
			writeJSON(w, http.StatusAccepted, archiveResp{Archive: name, Session: s.View()})
			return
		}
		outcome, stale, err := in.Wait(r.Context())
		if err != nil {
			http.Error(w, "inspection: "+err.Error(), http.StatusGatewayTimeout)
			return
		}
		writeJSON(w, http.StatusOK, archiveResp{Archive: name, Stale: stale, Outcome: &outcome, Session: s.View()})
	}
}

// POST /sessions/{id}/upload
func AcknowledgeUploadHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		u, err := s.AcknowledgeUpload()
		if err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"upload_url": u, "session": s.View()})
	}
}

// PUT /sessions/{id}/destination  { "url": "https://..." }
func SetDestinationHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		var req struct {
			URL string `json:"url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.SetDestinationURL(req.URL); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.View())
	}
}

// PUT /sessions/{id}/metadata  { "is_json_converted": false, "question_score": 3 }
func SetMetadataHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		var req struct {
			JSONConverted bool `json:"is_json_converted"`
			QuestionScore *int `json:"question_score,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.SetMetadata(req.JSONConverted, req.QuestionScore); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.View())
	}
}

// PUT /sessions/{id}/sheet  { "name": "Week 3" }
func SetSheetHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := s.SetSheetName(req.Name); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.View())
	}
}

// POST /sessions/{id}/subsheets/{name}
func ToggleSubsheetHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		if err := s.ToggleSubsheet(chi.URLParam(r, "name")); err != nil {
			writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, s.View())
	}
}

// GET /sessions/{id}/payload
//
// Always returns the payload as the form currently stands, ready or not.
func PayloadHandler(store session.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := loadSession(store, w, r)
		if !ok {
			return
		}
		_, p, _ := s.Payload()
		b, err := payload.Marshal(p)
		if err != nil {
			writeErr(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(b)
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes":
		return true
	}
	return false
}
