package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	derrors "github.com/randalmurphal/dossier/internal/errors"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// APIError is the standard error response format.
type APIError struct {
	Error  string            `json:"error"`
	Code   string            `json:"code,omitempty"`
	Fields map[string]string `json:"fields,omitempty"`
}

// JSONResponse writes a successful JSON response.
func JSONResponse(w http.ResponseWriter, data any) {
	JSONResponseStatus(w, data, http.StatusOK)
}

// JSONResponseStatus writes a JSON response with a specific status code.
func JSONResponseStatus(w http.ResponseWriter, data any, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// JSONError writes a simple error response.
func JSONError(w http.ResponseWriter, message string, status int) {
	JSONResponseStatus(w, APIError{Error: message}, status)
}

// HandleError writes err with the status its code maps to. Errors without
// a code are reported as 500.
func HandleError(w http.ResponseWriter, err error) {
	if de := derrors.AsDossierError(err); de != nil {
		msg := de.What
		if de.Why != "" {
			msg += ": " + de.Why
		}
		JSONResponseStatus(w, APIError{
			Error:  msg,
			Code:   string(de.Code),
			Fields: de.Fields,
		}, de.HTTPStatus())
		return
	}
	JSONError(w, err.Error(), http.StatusInternalServerError)
}

// NoContent writes a 204 No Content response.
func NoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// decodeJSON reads a JSON body into v. An empty body leaves v untouched.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return derrors.ErrValidation("invalid request body", map[string]string{"body": err.Error()})
	}
	return nil
}

func badQuery(name, format string, args ...any) error {
	return derrors.ErrValidation("invalid query parameter", map[string]string{name: fmt.Sprintf(format, args...)})
}
