// Package tools defines the statically declared tool descriptors the model may call, and the Registry that owns them. Tools enable the model to interact with local functions in a structured way.
package tools
