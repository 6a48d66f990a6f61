// Package api exposes the transcript store and the analytics agent over
// HTTP and MCP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tamilsm/TranscriptAnalysis/internal/agent"
	"github.com/tamilsm/TranscriptAnalysis/internal/ingest"
	"github.com/tamilsm/TranscriptAnalysis/internal/storage"
)

// Asker abstracts the analytics agent for the API layer.
type Asker interface {
	Ask(ctx context.Context, question string) (*agent.Answer, error)
}

type AppDeps struct {
	Store *storage.Store
	Agent Asker
	Token string
}

// TranscriptRequest submits one transcript for annotation. When Upsert is
// set, a re-annotation overwrites an existing conversation row instead of
// being rejected as a conflict.
type TranscriptRequest struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
	Date           string `json:"date"`
	Time           string `json:"time"`
	Content        string `json:"content"`
	Upsert         bool   `json:"upsert"`
}

// AskRequest is a natural-language analytics question.
type AskRequest struct {
	Question string `json:"question"`
}

func NewAppHandler(deps AppDeps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth)

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Post("/transcripts", handleSubmitTranscript(deps))
		r.Get("/transcripts/{id}", handleGetTranscript(deps))
		r.Get("/conversations", handleListConversations(deps))
		r.Get("/conversations/{id}", handleGetConversation(deps))
		r.Post("/ask", handleAsk(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func handleSubmitTranscript(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req TranscriptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Content == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "content is required")
			return
		}

		id := req.ConversationID
		if id == "" {
			id = uuid.New().String()
		}

		t := storage.Transcript{
			ID:        id,
			UserID:    req.UserID,
			Date:      req.Date,
			Time:      req.Time,
			Content:   req.Content,
			Status:    storage.TranscriptPending,
			CreatedAt: time.Now().UTC(),
		}
		if err := deps.Store.SaveTranscript(t); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to save transcript: %v", err)
			return
		}

		payload, err := json.Marshal(ingest.Payload{TranscriptID: id, Upsert: req.Upsert})
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to create job payload: %v", err)
			return
		}
		job := storage.Job{
			ID:          uuid.New().String(),
			Type:        ingest.JobType,
			PayloadJSON: string(payload),
		}
		if err := deps.Store.EnqueueJob(job); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to enqueue job: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(map[string]string{
			"id":     id,
			"status": "queued",
		})
	}
}

func handleGetTranscript(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		t, err := deps.Store.GetTranscript(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "transcript not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get transcript: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(t)
	}
}

func handleListConversations(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", 20, 100)
		offset := parseIntParam(r, "offset", 0, 0)

		conversations, err := deps.Store.ListConversations(limit, offset)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to list conversations: %v", err)
			return
		}
		if conversations == nil {
			conversations = []storage.Conversation{}
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(conversations)
	}
}

func handleGetConversation(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		c, err := deps.Store.GetConversation(id)
		if errors.Is(err, storage.ErrNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "conversation not found")
			return
		}
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "failed to get conversation: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(c)
	}
}

func handleAsk(deps AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Question == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "question is required")
			return
		}

		answer, err := deps.Agent.Ask(r.Context(), req.Question)
		if err != nil {
			var forbidden *agent.ForbiddenStatementError
			if errors.As(err, &forbidden) {
				httpError(w, http.StatusUnprocessableEntity, "forbidden_statement", "%v", forbidden)
				return
			}
			var execErr *agent.QueryExecutionError
			if errors.As(err, &execErr) {
				httpError(w, http.StatusUnprocessableEntity, "query_execution_error", "%v", execErr)
				return
			}
			httpError(w, http.StatusInternalServerError, "api_error", "failed to answer question: %v", err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(answer)
	}
}

func parseIntParam(r *http.Request, key string, defaultVal, maxVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return defaultVal
	}
	if maxVal > 0 && v > maxVal {
		return maxVal
	}
	return v
}
