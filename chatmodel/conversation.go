package chatmodel

import (
	"slices"

	"github.com/effective-security/toolagent/pkg/llms"
)

// Conversation is the ordered sequence of turns of one session.
// Turns are never modified after Append,
// Truncate only drops the turns after a rollback point.
type Conversation struct {
	turns []llms.Message
}

// NewConversation returns an empty conversation
func NewConversation() *Conversation {
	return &Conversation{}
}

// Append adds turns at the end
func (c *Conversation) Append(turns ...llms.Message) {
	c.turns = append(c.turns, turns...)
}

// Messages returns a copy of the turns
func (c *Conversation) Messages() []llms.Message {
	return slices.Clone(c.turns)
}

// Len returns the number of turns
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Last returns the last turn, or false if the conversation is empty
func (c *Conversation) Last() (llms.Message, bool) {
	if len(c.turns) == 0 {
		return llms.Message{}, false
	}
	return c.turns[len(c.turns)-1], true
}

// Truncate drops the turns after the first n,
// it is no-op if n is not less than Len.
func (c *Conversation) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n < len(c.turns) {
		clear(c.turns[n:])
		c.turns = c.turns[:n]
	}
}

// Reset drops all turns
func (c *Conversation) Reset() {
	c.Truncate(0)
}
