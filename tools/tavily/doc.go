// Package tavily provides web search backed by the Tavily API.
package tavily
