// Package schema builds JSON schemas of function parameters.
package schema
