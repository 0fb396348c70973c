package search

import (
	"context"
	"fmt"
)

// ToolHandler returns a function compatible with the tools.Tool Handler
// signature. It wraps the Manager's search method for use as an agent tool.
func ToolHandler(mgr *Manager, maxHits int) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if query == "" {
			return "", fmt.Errorf("web_search: query is required")
		}

		opts := Options{Count: maxHits}
		if count, ok := args["count"].(float64); ok && count > 0 {
			opts.Count = int(count)
		}

		results, err := mgr.Search(ctx, query, opts)
		if err != nil {
			return "", err
		}

		return FormatResults(results), nil
	}
}

// ToolDefinition returns the JSON Schema parameters for the web_search tool.
func ToolDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "The search query string, e.g. 'caffeine content 12oz cold brew'.",
			},
			"count": map[string]any{
				"type":        "integer",
				"description": "Maximum number of results to return (1-10). Default: 5.",
				"minimum":     1,
				"maximum":     MaxResults,
			},
		},
		"required": []string{"query"},
	}
}
