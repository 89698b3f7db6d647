package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/oseayemenre/bookshelf/internal/models"
)

func respondWithSuccess(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(data)
}

func respondWithError(w http.ResponseWriter, code int, error error) {
	respondWithSuccess(w, code, models.ErrorResponse{Error: error.Error()})
}

// decodeJson decodes the request body into params. Malformed or empty
// bodies are reported as 400.
func (a *Api) decodeJson(w http.ResponseWriter, r *http.Request, params any, service string) error {
	err := json.NewDecoder(r.Body).Decode(params)

	if err != nil {
		var maxErr *http.MaxBytesError

		switch {
		case errors.As(err, &maxErr):
			a.logger.Warn(fmt.Sprintf("request body too large: %v", err), "service", service)
			respondWithError(w, http.StatusRequestEntityTooLarge, fmt.Errorf("request body too large"))
		case errors.Is(err, io.EOF):
			a.logger.Warn("empty request body", "service", service)
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("request body is required"))
		default:
			a.logger.Warn(fmt.Sprintf("error decoding json: %v", err), "service", service)
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("error decoding json: %v", err))
		}
	}

	return err
}
