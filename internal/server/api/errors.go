package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/authkeeper/internal/common"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

// statusFor maps an error kind to an HTTP status and a message that is safe
// to show to the client.
func statusFor(kind common.Kind, err error) (int, string) {
	switch kind {
	case common.KindInvalidInput:
		return http.StatusBadRequest, err.Error()
	case common.KindInvalidCredentials:
		return http.StatusUnauthorized, common.ErrInvalidCredentials.Error()
	case common.KindNotFound:
		return http.StatusNotFound, common.ErrNotFound.Error()
	case common.KindDuplicateIdentity:
		return http.StatusConflict, common.ErrDuplicateIdentity.Error()
	case common.KindRateLimited:
		return http.StatusTooManyRequests, common.ErrRateLimited.Error()
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := common.KindOf(err)
	status, msg := statusFor(kind, err)
	if status == http.StatusInternalServerError {
		s.requestLogger(r).Error(r.Context(), "request failed", "path", r.URL.Path, "kind", kind.String(), "error", err)
	} else {
		s.requestLogger(r).Debug(r.Context(), "request rejected", "path", r.URL.Path, "kind", kind.String(), "status", status)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="authkeeper"`)
	}
	writeJSON(w, status, errorResponse{StatusCode: status, Message: msg})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if value != nil {
		_ = json.NewEncoder(w).Encode(value)
	}
}

const maxBodyBytes = 1 << 16

// decodeStrict reads a single JSON object and rejects unknown fields.
func decodeStrict(w http.ResponseWriter, r *http.Request, value any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(value); err != nil {
		if errors.Is(err, io.EOF) {
			return common.InvalidInput("request body is empty")
		}
		return common.InvalidInput("malformed JSON body")
	}
	if dec.More() {
		return common.InvalidInput("request body must contain a single JSON object")
	}
	return nil
}
