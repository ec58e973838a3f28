package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/fyrsmithlabs/docuchat/internal/vectorstore"
)

const searchToolName = "search_documents"

// noResultsMessage is returned as the tool result when the store has
// nothing relevant, so the model states that instead of hallucinating.
const noResultsMessage = "No relevant documents found."

// Searcher is the slice of the vector store the retrieval tool needs.
type Searcher interface {
	Search(ctx context.Context, query string, k int) ([]vectorstore.SearchResult, error)
}

// searchTool exposes vector store retrieval to the model as a
// function-calling tool.
type searchTool struct {
	searcher Searcher
	topK     int
}

func (t *searchTool) definition() openai.Tool {
	return openai.Tool{
		Type: openai.ToolTypeFunction,
		Function: &openai.FunctionDefinition{
			Name:        searchToolName,
			Description: "Search the uploaded documents for information relevant to a query. Returns the most similar document excerpts.",
			Parameters: json.RawMessage(`{
				"type": "object",
				"properties": {
					"query": {
						"type": "string",
						"description": "The search query"
					}
				},
				"required": ["query"]
			}`),
		},
	}
}

type searchArgs struct {
	Query string `json:"query"`
}

// run executes one tool invocation. The returned string is always a
// valid tool result; errors are reserved for store failures.
func (t *searchTool) run(ctx context.Context, rawArgs string) (string, error) {
	var args searchArgs
	if err := json.Unmarshal([]byte(rawArgs), &args); err != nil {
		return "", fmt.Errorf("parsing tool arguments: %w", err)
	}
	if strings.TrimSpace(args.Query) == "" {
		return noResultsMessage, nil
	}

	results, err := t.searcher.Search(ctx, args.Query, t.topK)
	if err != nil {
		return "", fmt.Errorf("searching documents: %w", err)
	}
	if len(results) == 0 {
		return noResultsMessage, nil
	}

	var sb strings.Builder
	for i, result := range results {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		source, _ := result.Metadata[vectorstore.MetaSource].(string)
		if source != "" {
			fmt.Fprintf(&sb, "[%s]\n", source)
		}
		sb.WriteString(result.Content)
	}
	return sb.String(), nil
}
