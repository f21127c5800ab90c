package api

import (
	"strings"

	"github.com/danielgtaylor/huma/v2"
)

// EnvelopeVersion is the response envelope schema version, sent as "v".
const EnvelopeVersion = 1

// APIEnvelope wraps every successful response.
type APIEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	V       int  `json:"v"`
	Success bool `json:"success"`
	Data    any  `json:"data,omitempty"`
}

// APIErrorEnvelope wraps every error response.
type APIErrorEnvelope struct { //nolint:revive // API prefix is intentional for clarity
	V       int    `json:"v"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
	Details any    `json:"details,omitempty"`
}

// EnvelopeTransformer wraps handler output in the response envelope.
// Errors without a code use the short {"error": "..."} form.
func EnvelopeTransformer(_ huma.Context, status string, v any) (any, error) {
	if apiErr, ok := v.(*APIError); ok {
		if apiErr.Code == "" {
			return APIErrorEnvelope{V: EnvelopeVersion, Error: apiErr.Message}, nil
		}
		return APIErrorEnvelope{
			V:       EnvelopeVersion,
			Code:    apiErr.Code,
			Message: apiErr.Message,
			Details: apiErr.Details,
		}, nil
	}

	if !strings.HasPrefix(status, "2") {
		// Anything else non-2xx is already a body we do not own.
		return v, nil
	}
	return APIEnvelope{V: EnvelopeVersion, Success: true, Data: v}, nil
}
