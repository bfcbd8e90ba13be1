package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codescribe/internal/searcher"
)

// Tool names
const (
	ToolGenerateDocs  = "generate_docs"
	ToolSearchReports = "search_reports"
	ToolIndexStatus   = "index_status"
	ToolIndexReports  = "index_reports"
)

func generateDocsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolGenerateDocs,
		Description: "Generate JSON, Markdown and HTML documentation for a source tree",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"path": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path to the project root",
				},
				"output_dir": map[string]interface{}{
					"type":        "string",
					"description": "Directory for the generated artifacts; relative paths resolve against the project root",
					"default":     DefaultOutputDir,
				},
				"index": map[string]interface{}{
					"type":        "boolean",
					"description": "If true, store the file summaries in the embedding index for search_reports",
					"default":     true,
				},
			},
			Required: []string{"path"},
		},
	}
}

func searchReportsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolSearchReports,
		Description: "Search indexed file summaries with a natural language query",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"query": map[string]interface{}{
					"type":        "string",
					"description": "Search query",
				},
				"k": map[string]interface{}{
					"type":        "integer",
					"description": "Maximum number of results to return",
					"default":     searcher.DefaultK,
					"minimum":     1,
				},
				"mode": map[string]interface{}{
					"type":        "string",
					"description": "Search strategy: vector (semantic), keyword (full text) or hybrid (both, fused by rank)",
					"enum":        []string{string(searcher.SearchModeVector), string(searcher.SearchModeKeyword), string(searcher.SearchModeHybrid)},
					"default":     string(searcher.SearchModeVector),
				},
			},
			Required: []string{"query"},
		},
	}
}

func indexStatusTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolIndexStatus,
		Description: "Report embedding index statistics and recent documentation runs",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}
}

func indexReportsTool() mcp.Tool {
	return mcp.Tool{
		Name:        ToolIndexReports,
		Description: "Add every report file in a directory to the search index, keyed by file name",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"dir": map[string]interface{}{
					"type":        "string",
					"description": "Absolute path of the directory holding report files; subdirectories are not read",
				},
			},
			Required: []string{"dir"},
		},
	}
}
