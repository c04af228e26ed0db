// Package builtin provides the example tools: weather, calculator, clock, web search and a todo list.
package builtin
