package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/mini-maxit/evaluator/internal/logger"
	"github.com/mini-maxit/evaluator/internal/pipeline"
	customErr "github.com/mini-maxit/evaluator/pkg/errors"
	"github.com/mini-maxit/evaluator/pkg/languages"
	"github.com/mini-maxit/evaluator/pkg/submission"
)

// SubmissionHandler exposes the submission manager over HTTP.
type SubmissionHandler struct {
	manager pipeline.Manager
	logger  *zap.SugaredLogger
}

func NewSubmissionHandler(manager pipeline.Manager) *SubmissionHandler {
	return &SubmissionHandler{
		manager: manager,
		logger:  logger.NewNamedLogger("submission-handler"),
	}
}

func (h *SubmissionHandler) RegisterRoutes(router *mux.Router) {
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/submissions", h.CreateSubmission).Methods(http.MethodPost)
	api.HandleFunc("/submissions/{id}", h.GetSubmission).Methods(http.MethodGet)
	api.HandleFunc("/users/{userID}/questions/{questionID}/submissions", h.ListSubmissions).Methods(http.MethodGet)
	api.HandleFunc("/languages", h.GetLanguages).Methods(http.MethodGet)
}

// errorResponse carries the failed record, if any, next to the message.
type errorResponse struct {
	Error      string                 `json:"error"`
	Submission *submission.Submission `json:"submission,omitempty"`
}

func (h *SubmissionHandler) CreateSubmission(w http.ResponseWriter, r *http.Request) {
	var input submission.Input
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&input); err != nil {
		h.logger.Infof("Failed to decode request: %s", err)
		ResponseError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	result, err := h.manager.Evaluate(r.Context(), input)
	if err != nil {
		var validationErr *customErr.ValidationError
		status := http.StatusInternalServerError
		if errors.As(err, &validationErr) {
			status = http.StatusUnprocessableEntity
		}
		ResponseWithJson(w, status, errorResponse{Error: err.Error(), Submission: result})
		return
	}

	ResponseWithJson(w, http.StatusCreated, result)
}

func (h *SubmissionHandler) GetSubmission(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := h.manager.GetSubmission(r.Context(), id)
	if err != nil {
		if errors.Is(err, customErr.ErrSubmissionNotFound) {
			ResponseError(w, err.Error(), http.StatusNotFound)
			return
		}
		h.logger.Errorf("Failed to get submission %s: %s", id, err)
		ResponseError(w, "failed to get submission", http.StatusInternalServerError)
		return
	}

	ResponseWithJson(w, http.StatusOK, result)
}

func (h *SubmissionHandler) ListSubmissions(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	results, err := h.manager.ListSubmissions(r.Context(), vars["userID"], vars["questionID"])
	if err != nil {
		h.logger.Errorf("Failed to list submissions: %s", err)
		ResponseError(w, "failed to list submissions", http.StatusInternalServerError)
		return
	}

	ResponseWithJson(w, http.StatusOK, map[string][]*submission.Submission{"submissions": results})
}

func (h *SubmissionHandler) GetLanguages(w http.ResponseWriter, _ *http.Request) {
	ResponseWithJson(w, http.StatusOK, map[string][]languages.LanguageSpec{"languages": languages.GetSupportedLanguages()})
}

func ResponseWithJson(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func ResponseError(w http.ResponseWriter, message string, code int) {
	ResponseWithJson(w, code, map[string]string{"error": message})
}
