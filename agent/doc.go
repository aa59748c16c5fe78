// Package agent binds a persona, the shared prompt templates and a model
// client into a core.Responder.
//
// Every call renders the system, developer and user templates against the
// persona, the round rule, the length limit, the topic and the transcript
// so far, then asks the model for the reply. Agents hold no conversation
// state, so one Agent may serve several conversations.
//
// NewFromPersona and BuildAll resolve the model client from a
// model.Registry using the persona's llm block.
package agent
