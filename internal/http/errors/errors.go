package errors

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
)

// InternalError logs err and answers 500 with message and the failure reason.
func InternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	logf(r, "ERROR", "%s: %v", message, err)
	http.Error(w, message+": "+err.Error(), http.StatusInternalServerError)
}

// ConfigError answers 500 for a server that is missing required settings.
func ConfigError(w http.ResponseWriter, r *http.Request, message string) {
	logf(r, "ERROR", "configuration: %s", message)
	http.Error(w, message, http.StatusInternalServerError)
}

// BadRequestError answers 400 with guidance for the caller.
func BadRequestError(w http.ResponseWriter, r *http.Request, err error, clientMessage string) {
	logf(r, "WARN", "bad request: %v", err)
	http.Error(w, clientMessage, http.StatusBadRequest)
}

// Unauthorized answers 401 without revealing why the credential failed.
func Unauthorized(w http.ResponseWriter, r *http.Request, err error) {
	logf(r, "WARN", "unauthorized: %v", err)
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

// LogError records a failure that happened after the response was committed.
func LogError(r *http.Request, err error, message string) {
	logf(r, "ERROR", "%s: %v", message, err)
}

func LogInfo(r *http.Request, message string) {
	logf(r, "INFO", "%s", message)
}

func logf(r *http.Request, level, format string, args ...any) {
	requestID := middleware.GetReqID(r.Context())
	if requestID != "" {
		log.Printf("[%s] RequestID=%s: "+format, append([]any{level, requestID}, args...)...)
		return
	}
	log.Printf("[%s] "+format, append([]any{level}, args...)...)
}
