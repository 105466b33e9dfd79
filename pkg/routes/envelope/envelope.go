// Package envelope defines the success response shape shared by every route.
package envelope

// Envelope wraps route responses. Errors never use it; they go through the
// central error handler instead.
type Envelope struct {
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// New builds an envelope with a message and payload.
func New(message string, data any) Envelope {
	return Envelope{Message: message, Data: data}
}

// WithMeta attaches out-of-band details, like partial-failure counts.
func (e Envelope) WithMeta(key string, value any) Envelope {
	if e.Meta == nil {
		e.Meta = map[string]any{}
	}
	e.Meta[key] = value
	return e
}
