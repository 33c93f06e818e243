package authapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
)

// Every response uses one envelope shape so page scripts can branch on the
// "success" flag alone.
type successEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Data       any    `json:"data"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

type errorEnvelope struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Success    bool   `json:"success"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteSuccess writes the success envelope {statusCode, data, message, success:true}.
func WriteSuccess(w http.ResponseWriter, status int, data any, msg string) {
	writeJSON(w, status, successEnvelope{
		StatusCode: status,
		Data:       data,
		Message:    msg,
		Success:    true,
	})
}

// WriteError writes the failure envelope {statusCode, message, success:false}.
func WriteError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorEnvelope{
		StatusCode: status,
		Message:    msg,
		Success:    false,
	})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	defer func() { _ = r.Body.Close() }()

	body := http.MaxBytesReader(w, r.Body, maxBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return err
	}
	// Ensure there is no extra data after the first JSON value.
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return errors.New("extra data after JSON object")
	}
	return nil
}
