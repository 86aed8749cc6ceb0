package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeJSON reads the request body into dst. Unknown fields are rejected.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return errors.New("request body is required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return fmt.Errorf("request body exceeds %d bytes", maxErr.Limit)
		}
		return fmt.Errorf("malformed request body: %w", err)
	}
	return nil
}

// pathParam binds the chi URL parameter name into dst using the OpenAPI
// "simple" style, so a malformed UUID or integer is rejected consistently.
func pathParam(r *http.Request, name string, dst any) error {
	return runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), dst,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
}

// queryParam binds an optional query parameter into dst.
func queryParam(r *http.Request, name string, dst any) error {
	return runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), dst)
}

// tripID binds {tripId}, writing a 422 and returning false when it is malformed.
func tripID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	var id uuid.UUID
	if err := pathParam(r, "tripId", &id); err != nil {
		requestError(w, "tripId must be a UUID")
		return uuid.Nil, false
	}
	return id, true
}

// slot binds {day} and {index}.
func slot(w http.ResponseWriter, r *http.Request) (day, index int, ok bool) {
	if err := pathParam(r, "day", &day); err != nil {
		requestError(w, "day must be an integer")
		return 0, 0, false
	}
	if chi.URLParam(r, "index") == "" {
		return day, 0, true
	}
	if err := pathParam(r, "index", &index); err != nil {
		requestError(w, "index must be an integer")
		return 0, 0, false
	}
	return day, index, true
}
