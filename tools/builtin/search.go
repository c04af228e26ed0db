package builtin

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolagent/pkg/schema"
	"github.com/effective-security/toolagent/tools"
)

// Search returns the search_web tool.
// If searcher is nil, the tool returns a canned result.
func Search(searcher Searcher) *tools.Descriptor {
	return &tools.Descriptor{
		Name:        ToolSearchWeb,
		Description: "Search the web for information.",
		Params: []tools.Param{
			{Name: "query", Type: schema.TypeString, Required: true, Description: "The search query string"},
		},
		Func: func(ctx context.Context, args tools.Args) (string, error) {
			query := args.String(0)
			if searcher == nil {
				return fmt.Sprintf("Search results for '%s': Found relevant information about %s.", query, query), nil
			}
			res, err := searcher.SearchText(ctx, query)
			if err != nil {
				return "", errors.WithMessagef(err, "search for %q", query)
			}
			return res, nil
		},
	}
}
