package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codescribe/internal/pipeline"
	"github.com/dshills/codescribe/internal/searcher"
	"github.com/dshills/codescribe/internal/service"
	"github.com/dshills/codescribe/internal/vectorindex"
)

// MCP error codes
const (
	ErrorCodeInvalidParams   = -32602 // Invalid method parameters
	ErrorCodeInternalError   = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound = -32001 // Specified path holds no documentable sources
	ErrorCodeRunInProgress   = -32002 // Another documentation run is already in progress
	ErrorCodeNotIndexed      = -32003 // No embedding index is available
	ErrorCodeEmptyQuery      = -32004 // Query parameter is empty
)

// maxReportedSkips bounds the skip list in a generate_docs response
const maxReportedSkips = 10

func (s *Server) handleGenerateDocs(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path, ok := args["path"].(string)
	if !ok || path == "" {
		return nil, newMCPError(ErrorCodeInvalidParams, "path parameter is required", map[string]interface{}{
			"param":  "path",
			"reason": "missing or empty",
		})
	}

	if err := validatePath(path, s.opts.Suffixes); err != nil {
		code := ErrorCodeInvalidParams
		if errors.Is(err, ErrNoSourceFiles) {
			code = ErrorCodeProjectNotFound
		}
		return nil, newMCPError(code, "invalid path", map[string]interface{}{
			"param":  "path",
			"reason": err.Error(),
		})
	}

	outputDir := getStringDefault(args, "output_dir", s.opts.OutputDir)
	if !filepath.IsAbs(outputDir) {
		outputDir = filepath.Join(path, outputDir)
	}
	index := getBoolDefault(args, "index", true)

	res, err := s.backend.Generate(ctx, service.GenerateRequest{
		Root:      path,
		OutputDir: outputDir,
		NoIndex:   !index,
	})
	if errors.Is(err, pipeline.ErrRunInProgress) {
		return nil, newMCPError(ErrorCodeRunInProgress, "a documentation run is already in progress", nil)
	}
	if err != nil {
		s.logger.Error("generate_docs failed", "path", path, "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "documentation run failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	artifacts := make([]map[string]interface{}, 0, len(res.Writes))
	for _, w := range res.Writes {
		entry := map[string]interface{}{"path": w.Path, "written": w.Err == nil}
		if w.Err != nil {
			entry["error"] = w.Err.Error()
		}
		artifacts = append(artifacts, entry)
	}

	response := map[string]interface{}{
		"run_id":            res.Bundle.RunID,
		"root":              res.Bundle.Root,
		"output_dir":        res.OutputDir,
		"units_found":       res.Stats.UnitsFound,
		"units_summarized":  res.Stats.UnitsSummarized,
		"documents_indexed": res.Stats.DocumentsIndexed,
		"has_overview":      res.Bundle.ProjectOverview != "",
		"artifacts":         artifacts,
		"duration_ms":       res.Stats.Duration.Milliseconds(),
	}
	if res.Bundle.Module != "" {
		response["module"] = res.Bundle.Module
	}

	if n := len(res.Bundle.Skipped); n > 0 {
		skipped := res.Bundle.Skipped
		if n > maxReportedSkips {
			skipped = skipped[:maxReportedSkips]
		}
		response["skipped"] = skipped
		response["skipped_count"] = n
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) handleSearchReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	query, ok := args["query"].(string)
	if !ok || strings.TrimSpace(query) == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	k := getIntDefault(args, "k", searcher.DefaultK)
	if k < 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "k must be at least 1", map[string]interface{}{
			"param": "k",
			"value": k,
		})
	}

	mode, err := searcher.ParseMode(getStringDefault(args, "mode", string(searcher.SearchModeVector)))
	if err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid mode", map[string]interface{}{
			"param":   "mode",
			"value":   args["mode"],
			"allowed": []string{string(searcher.SearchModeVector), string(searcher.SearchModeKeyword), string(searcher.SearchModeHybrid)},
		})
	}

	resp, err := s.backend.Search(ctx, searcher.Request{Query: query, K: k, Mode: mode, UseCache: true})
	switch {
	case errors.Is(err, service.ErrNoIndex), errors.Is(err, vectorindex.ErrNoKeywordIndex):
		return nil, newMCPError(ErrorCodeNotIndexed, "no index available for this search mode", map[string]interface{}{
			"mode": string(mode),
		})
	case errors.Is(err, searcher.ErrInvalidK):
		return nil, newMCPError(ErrorCodeInvalidParams, "k must be at least 1", map[string]interface{}{
			"param": "k",
			"value": k,
		})
	case errors.Is(err, searcher.ErrEmptyQuery):
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", nil)
	case err != nil:
		s.logger.Error("search_reports failed", "query", query, "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	results := make([]map[string]interface{}, 0, len(resp.Hits))
	for _, h := range resp.Hits {
		results = append(results, map[string]interface{}{
			"rank":    h.Rank,
			"doc_id":  h.DocID,
			"score":   h.Score,
			"summary": h.RawText,
		})
	}

	response := map[string]interface{}{
		"query":       query,
		"mode":        string(resp.Mode),
		"results":     results,
		"cache_hit":   resp.CacheHit,
		"duration_ms": resp.Duration.Milliseconds(),
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) handleIndexStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	st, err := s.backend.Status(ctx, 0)
	if errors.Is(err, service.ErrNoIndex) {
		response := map[string]interface{}{
			"indexed": false,
			"message": "No embedding index is configured. Run generate_docs with index enabled first.",
		}
		return mcp.NewToolResultText(formatJSON(response)), nil
	}
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to get status", map[string]interface{}{
			"error": err.Error(),
		})
	}

	runs := make([]map[string]interface{}, 0, len(st.Runs))
	for _, r := range st.Runs {
		runs = append(runs, map[string]interface{}{
			"run_id":            r.RunID,
			"root":              r.Root,
			"output_dir":        r.OutputDir,
			"finished_at":       r.FinishedAt.Format(time.RFC3339),
			"units_found":       r.UnitsFound,
			"units_summarized":  r.UnitsSummarized,
			"units_skipped":     r.UnitsSkipped,
			"documents_indexed": r.DocumentsIndexed,
		})
	}

	statistics := map[string]interface{}{
		"documents":     st.Stats.Documents,
		"runs":          st.Stats.Runs,
		"index_size_mb": fmt.Sprintf("%.2f", float64(st.Stats.DatabaseSize)/(1024*1024)),
		"build_mode":    st.Stats.BuildMode,
	}
	if m := st.Stats.Meta; m != nil {
		statistics["embedding"] = map[string]interface{}{
			"provider":  m.Provider,
			"model":     m.Model,
			"dimension": m.Dimension,
		}
	}

	response := map[string]interface{}{
		"indexed":     st.Stats.Documents > 0,
		"path":        st.Path,
		"statistics":  statistics,
		"recent_runs": runs,
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

func (s *Server) handleIndexReports(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	dir, _ := args["dir"].(string)
	if err := validateDir(dir); err != nil {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid dir", map[string]interface{}{
			"param":  "dir",
			"reason": err.Error(),
		})
	}

	res, err := s.backend.IndexReports(ctx, dir)
	if errors.Is(err, service.ErrNoIndex) {
		return nil, newMCPError(ErrorCodeNotIndexed, "no embedding index is configured", nil)
	}
	if err != nil {
		s.logger.Error("index_reports failed", "dir", dir, "error", err)
		return nil, newMCPError(ErrorCodeInternalError, "indexing reports failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"dir":           res.Dir,
		"indexed":       res.Indexed,
		"indexed_count": len(res.Indexed),
		"duration_ms":   res.Duration.Milliseconds(),
	}
	if n := len(res.Skipped); n > 0 {
		skipped := res.Skipped
		if n > maxReportedSkips {
			skipped = skipped[:maxReportedSkips]
		}
		response["skipped"] = skipped
		response["skipped_count"] = n
	}
	return mcp.NewToolResultText(formatJSON(response)), nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

// validatePath checks that path is an absolute, readable directory holding
// at least one file with one of the given suffixes
func validatePath(path string, suffixes []string) error {
	if err := validateDir(path); err != nil {
		return err
	}

	found := false
	_ = filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		for _, suffix := range suffixes {
			if strings.HasSuffix(p, suffix) {
				found = true
				return fs.SkipAll
			}
		}
		return nil
	})

	if !found {
		return ErrNoSourceFiles
	}

	return nil
}

// validateDir checks that path is an absolute, readable directory
func validateDir(path string) error {
	if path == "" {
		return ErrPathRequired
	}

	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if !info.IsDir() {
		return ErrNotDirectory
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getBoolDefault extracts a boolean parameter with a default value
func getBoolDefault(args map[string]interface{}, key string, defaultValue bool) bool {
	if val, ok := args[key].(bool); ok {
		return val
	}
	return defaultValue
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok && val != "" {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNoSourceFiles   = errors.New("directory does not contain matching source files")
)
