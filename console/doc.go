// Package console implements the interactive chat loop on top of the assistant.
package console
