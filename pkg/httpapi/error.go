package httpapi

import (
	"encoding/json"
	"net/http"
)

// ErrorEnvelope standardizes JSON error responses for API namespaces.
type ErrorEnvelope struct {
	Kind    string            `json:"kind,omitempty"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Meta    map[string]string `json:"meta,omitempty"`
}

func (e *ErrorEnvelope) Error() string {
	return e.Message
}

func WriteJSON(w http.ResponseWriter, status int, payload any) error {
	if w == nil {
		return nil
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return nil
	}
	return json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// WriteKindError writes an envelope that also names the error category so clients can branch on it.
func WriteKindError(w http.ResponseWriter, status int, kind, code, message string, meta map[string]string) error {
	return WriteJSON(w, status, &ErrorEnvelope{
		Kind:    kind,
		Code:    code,
		Message: message,
		Meta:    meta,
	})
}

// DecodeError reads an ErrorEnvelope from a non-2xx response body. A body that is
// not an envelope yields one carrying the raw text.
func DecodeError(status int, body []byte) *ErrorEnvelope {
	var env ErrorEnvelope
	if err := json.Unmarshal(body, &env); err != nil || (env.Message == "" && env.Code == "") {
		return &ErrorEnvelope{
			Code:    http.StatusText(status),
			Message: string(body),
		}
	}
	return &env
}
