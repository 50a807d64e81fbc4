package api

import (
	"encoding/json"
	"net/http"

	"github.com/archlens/archlens/pkg/errors"
)

type errorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps an error code to an HTTP status and renders the
// standard error envelope.
func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)

	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidLayout, errors.ErrCodeInvalidImage, errors.ErrCodeInvalidConfig,
		errors.ErrCodeInvalidInput, errors.ErrCodeUnknownCategory, errors.ErrCodeUnknownStrategy:
		status = http.StatusBadRequest
	case errors.ErrCodeNotFound, errors.ErrCodeSnapshotNotFound, errors.ErrCodeBaselineNotFound:
		status = http.StatusNotFound
	case errors.ErrCodeInvalidState:
		status = http.StatusConflict
	case errors.ErrCodeEngine, errors.ErrCodeStore:
		status = http.StatusBadGateway
	}

	var resp errorResponse
	resp.Error.Code = string(code)
	resp.Error.Message = errors.UserMessage(err)
	writeJSON(w, status, resp)
}
