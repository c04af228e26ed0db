// Package callbacks provides the handlers of the assistant events:
// printing to the terminal, logging, and collecting the session stats.
package callbacks
