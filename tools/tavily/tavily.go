package tavily

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/cockroachdb/errors"
	tavilygo "github.com/diverged/tavily-go"
	tavilyModels "github.com/diverged/tavily-go/models"
)

// EnvAPIKey is the environment variable with the Tavily API key
const EnvAPIKey = "TAVILY_API_KEY"

// SearchResult represents the structure for a search response
type SearchResult struct {
	Results []tavilyModels.SearchResult `json:"results"`
	Answer  string                      `json:"answer,omitempty"`
}

// Client performs web searches with Tavily
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New returns a Client, the API key is read from TAVILY_API_KEY if empty
func New(apiKey string) (*Client, error) {
	if apiKey == "" {
		apiKey = os.Getenv(EnvAPIKey)
	}
	if apiKey == "" {
		return nil, errors.Errorf("%s is not set", EnvAPIKey)
	}
	return &Client{
		apiKey:     apiKey,
		httpClient: http.DefaultClient,
	}, nil
}

func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

func (c *Client) WithHTTPClient(client *http.Client) *Client {
	c.httpClient = client
	return c
}

// Search performs a basic web search with an aggregated answer
func (c *Client) Search(_ context.Context, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.New("invalid request: empty query")
	}

	client := tavilygo.NewClient(c.apiKey)
	if c.baseURL != "" {
		client.BaseURL = c.baseURL
	}
	if c.httpClient != nil {
		client.HTTPClient = c.httpClient
	}

	searchResp, err := tavilygo.Search(client, tavilyModels.SearchRequest{
		Query:         query,
		SearchDepth:   "basic",
		IncludeAnswer: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to perform search")
	}

	return &SearchResult{
		Results: searchResp.Results,
		Answer:  searchResp.Answer,
	}, nil
}

// SearchText performs Search and returns the result as text for the model
func (c *Client) SearchText(ctx context.Context, query string) (string, error) {
	res, err := c.Search(ctx, query)
	if err != nil {
		return "", err
	}
	if res.Answer == "" && len(res.Results) == 0 {
		return fmt.Sprintf("Search results for '%s': nothing found.", query), nil
	}
	return fmt.Sprintf("Search results for '%s':\n%s", query, res.String()), nil
}

func (r *SearchResult) String() string {
	var buf bytes.Buffer
	if r.Answer != "" {
		fmt.Fprintf(&buf, "ANSWER: %s\n", r.Answer)
	}

	for _, result := range r.Results {
		fmt.Fprintf(&buf, "- URL: %s\n", result.URL)
		fmt.Fprintf(&buf, "  TITLE: %s\n", result.Title)
		fmt.Fprintf(&buf, "  SCORE: %f\n", result.Score)
		fmt.Fprintf(&buf, "  CONTENT: %s\n", result.Content)
	}

	return buf.String()
}
