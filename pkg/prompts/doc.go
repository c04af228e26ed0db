// Package prompts renders the system prompt sent ahead of the conversation.
package prompts
