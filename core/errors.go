package core

import "errors"

// Configuration errors. They are raised at load or parse time and are never
// recovered inside the engine.
var (
	// ErrMissingPrompt indicates that one of the system/developer/user templates could not be read.
	ErrMissingPrompt = errors.New("missing prompt template")
	// ErrUnknownPersona indicates a persona key that is not declared in the loaded catalog.
	ErrUnknownPersona = errors.New("unknown persona")
	// ErrMalformedTurn indicates a history record without a string speaker or text.
	ErrMalformedTurn = errors.New("malformed turn record")
)

// Protocol errors returned by Conversation.
var (
	// ErrConversationBusy is returned when a step or preload is attempted while another step is in flight.
	ErrConversationBusy = errors.New("conversation is already stepping")
	// ErrHistorySealed is returned when history is preloaded after the first step.
	ErrHistorySealed = errors.New("history can only be preloaded before the first step")
	// ErrNoReply is returned when an asynchronous responder finishes without a turn or an error.
	ErrNoReply = errors.New("responder finished without a reply")
)
