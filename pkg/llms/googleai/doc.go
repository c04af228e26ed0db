// Package googleai implements llms.Model on top of the Gemini API
// using the google.golang.org/genai client.
package googleai
