package agent

import "errors"

var (
	// ErrNoModelResponse means the first pass produced neither text nor
	// a tool request.
	ErrNoModelResponse = errors.New("no response from model")

	// ErrNoConversationalResponse means the second pass failed to turn a
	// tool result into prose.
	ErrNoConversationalResponse = errors.New("no conversational response from model")
)
