// Package envelope implements the uniform JSON wire format shared by every
// API response, plus the lenient request parsing that feeds the pipeline.
package envelope

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope written for every API response, success or error.
type Response struct {
	// Status reports whether the request succeeded (code < 400).
	Status bool `json:"status"`

	// Code is the HTTP status code of the response.
	Code int `json:"code"`

	// Message tells the request result in one line.
	Message string `json:"message,omitempty"`

	// Data is the endpoint-specific response body.
	Data any `json:"data"`
}

// Send writes the JSON envelope and sets the HTTP status. A zero statusCode
// defaults to 200. The message is prefixed with the status text; when no
// message is given the status text alone is sent.
func Send(w http.ResponseWriter, statusCode int, message string, body any) {
	if statusCode == 0 {
		statusCode = http.StatusOK
	}

	statusText := http.StatusText(statusCode)
	if message != "" {
		message = statusText + ": " + message
	} else {
		message = statusText + "."
	}

	resp := Response{
		Status:  statusCode < 400,
		Code:    statusCode,
		Message: message,
		Data:    body,
	}
	if resp.Data == nil {
		resp.Data = map[string]any{}
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)

	// The transport accepts one write per request; if encoding fails at this
	// point there is nothing more that can be sent to the client.
	_ = json.NewEncoder(w).Encode(resp)
}
