package testutil

import (
	"github.com/hupe1980/banter/core"
	"github.com/hupe1980/banter/logging"
)

// ConversationBuilder constructs conversations with a fixed id and an
// optional preloaded history.
type ConversationBuilder struct {
	id      string
	topic   string
	history []core.Turn
	logger  logging.Logger
}

// NewConversationBuilder starts a builder with id "conv-test".
func NewConversationBuilder(topic string) *ConversationBuilder {
	return &ConversationBuilder{id: "conv-test", topic: topic}
}

// ID overrides the conversation id (chainable).
func (b *ConversationBuilder) ID(id string) *ConversationBuilder { b.id = id; return b }

// History appends turns to preload (chainable).
func (b *ConversationBuilder) History(turns ...core.Turn) *ConversationBuilder {
	b.history = append(b.history, turns...)
	return b
}

// Logger sets the conversation logger (chainable).
func (b *ConversationBuilder) Logger(l logging.Logger) *ConversationBuilder { b.logger = l; return b }

// Build creates the conversation. It panics if preloading fails, which can
// only happen through misuse of the builder.
func (b *ConversationBuilder) Build() *core.Conversation {
	c := core.NewConversation(b.topic, func(o *core.ConversationOptions) {
		o.ID = b.id
		o.Logger = b.logger
	})
	if len(b.history) > 0 {
		if err := c.Preload(b.history...); err != nil {
			panic(err)
		}
	}
	return c
}
