// Package core provides the foundational domain types of banter and the
// turn-taking protocol that advances a shared transcript:
//
//   - Persona / Mapping (immutable participant profiles from declarative sources)
//   - PromptSet (the three shared prompt templates)
//   - Turn (one produced utterance, with its mapping form for history and reporting)
//   - Conversation (append-only transcript plus the blocking and asynchronous step protocol)
//   - Responder (the capability a Conversation invokes to obtain the next Turn)
//
// The package keeps rendering, model transport and persona loading out of
// scope so those concerns can evolve in their own packages without cycles.
package core
