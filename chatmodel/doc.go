// Package chatmodel provides the conversation of a session and its context.
package chatmodel
