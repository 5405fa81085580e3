package types

// SuccessEnvelope wraps every successful API payload under a "data" key so
// clients can distinguish payloads from error bodies by shape.
type SuccessEnvelope struct {
	Data any `json:"data"`
}

// APIError is the wire form of a coded application error. Details is only
// populated for codes whose metadata allows exposing them.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

// ErrorEnvelope wraps an APIError under an "error" key.
type ErrorEnvelope struct {
	Error APIError `json:"error"`
}
