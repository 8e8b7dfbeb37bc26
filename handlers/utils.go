package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"story-content-gateway/errors"
	"story-content-gateway/models"
	"story-content-gateway/services"
)

// Viewer identity headers, populated by the authenticating proxy in front
// of the gateway.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// viewerFromRequest extracts the viewer identity from request headers
func viewerFromRequest(r *http.Request) services.Viewer {
	return services.Viewer{
		UserID: r.Header.Get(headerUserID),
		Role:   r.Header.Get(headerUserRole),
	}
}

// writeJSONResponse writes a JSON response with the given status code
func writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("Failed to encode JSON response: %v", err)
	}
}

// writeErrorResponse writes an error response with the given status code
func writeErrorResponse(w http.ResponseWriter, statusCode int, message, details string) {
	errorResp := models.APIError{
		Type:    "error",
		Code:    http.StatusText(statusCode),
		Message: message,
		Details: details,
	}

	writeJSONResponse(w, statusCode, errorResp)
}

// writeAppErrorResponse writes an AppError as HTTP response
func writeAppErrorResponse(w http.ResponseWriter, err error) {
	if appErr, ok := errors.AsAppError(err); ok {
		apiError := models.APIError{
			Type:    string(appErr.Type),
			Code:    appErr.Code,
			Message: appErr.Message,
			Details: appErr.Details,
		}

		writeJSONResponse(w, appErr.GetHTTPStatusCode(), apiError)

		log.Printf("API Error [%s]: %s - %v", appErr.Code, appErr.Message, appErr.Cause)
		return
	}

	log.Printf("Unexpected error type: %v", err)
	writeErrorResponse(w, http.StatusInternalServerError, "Internal server error", err.Error())
}

// decodeJSONBody decodes the request body into dst
func decodeJSONBody(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid request body", err.Error())
		return false
	}
	return true
}
