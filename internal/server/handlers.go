package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/michaelbrown/runlet/internal/session"
	"github.com/michaelbrown/runlet/internal/storage"
)

// --- JSON helpers ---

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(v)
}

// --- Chat dispatch ---

// dispatch routes one inbound text line. Lines starting with "/" are
// commands; everything else goes to the state machine as plain text.
func (s *Server) dispatch(ctx context.Context, requesterID, text string) []session.Reply {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return s.coord.HandleText(ctx, requesterID, text)
	}

	switch strings.ToLower(strings.Fields(text)[0]) {
	case "/start":
		return s.coord.Greet(requesterID)
	case "/help":
		return s.coord.Help(requesterID)
	case "/run":
		return s.coord.StartRun(requesterID)
	case "/cancel":
		return s.coord.Cancel(requesterID)
	default:
		return []session.Reply{{Kind: session.KindError, Text: "Unknown command (try /help)."}}
	}
}

type sendMessageRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	requesterID := chi.URLParam(r, "requester")

	var req sendMessageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}
	if req.Content == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	replies := s.dispatch(r.Context(), requesterID, req.Content)
	if replies == nil {
		replies = []session.Reply{}
	}
	writeJSON(w, http.StatusOK, replies)
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, http.StatusOK, map[string]string{
		"service": "runlet",
		"chat":    "/api/chat/{requester}/ws",
	})
}

// --- Run history handlers ---

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	opts := storage.RunListOptions{
		RequesterID: r.URL.Query().Get("requester"),
		Outcome:     r.URL.Query().Get("outcome"),
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		if n, err := strconv.Atoi(limit); err == nil {
			opts.Limit = n
		}
	}
	if offset := r.URL.Query().Get("offset"); offset != "" {
		if n, err := strconv.Atoi(offset); err == nil {
			opts.Offset = n
		}
	}

	runs, err := s.store.ListRuns(r.Context(), opts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if runs == nil {
		runs = []storage.Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	run, err := s.store.GetRun(r.Context(), id)
	if err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "run not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteRun(r.Context(), id); err != nil {
		if strings.Contains(err.Error(), "not found") {
			writeError(w, http.StatusNotFound, "run not found")
		} else {
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
