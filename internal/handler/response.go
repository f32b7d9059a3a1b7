package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"
)

// Message levels.
const (
	levelSuccess = "success"
	levelWarning = "warning"
)

// message is a user-facing notice attached to a response.
type message struct {
	Level string `json:"level"`
	Code  string `json:"code"`
	Text  string `json:"text"`
}

func warning(code, text string) message {
	return message{Level: levelWarning, Code: code, Text: text}
}

func success(code, text string) message {
	return message{Level: levelSuccess, Code: code, Text: text}
}

type messagesResponse struct {
	Messages []message `json:"messages"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, text string) {
	writeJSON(w, status, errorResponse{Error: code, Message: text})
}

func writeMessages(w http.ResponseWriter, msgs ...message) {
	writeJSON(w, http.StatusOK, messagesResponse{Messages: msgs})
}

// internalError logs err and answers 500 without exposing it.
func internalError(w http.ResponseWriter, r *http.Request, err error) {
	zctx.From(r.Context()).Error("Request failed", zap.Error(err))
	writeError(w, http.StatusInternalServerError, "internal", "internal server error")
}
