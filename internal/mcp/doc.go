// Package mcp implements the Model Context Protocol (MCP) server for codescribe.
//
// The server exposes four tools to MCP clients:
//   - generate_docs: Run the documentation pipeline over a project and write the reports
//   - search_reports: Search indexed file summaries with a natural language query
//   - index_status: Report index statistics and recent runs
//   - index_reports: Add the report files of a directory to the search index
//
// # Protocol Overview
//
// MCP is a JSON-RPC 2.0 protocol over stdio transport:
//
//	Client → Server: {"method": "tools/call", "params": {...}}
//	Server → Client: {"result": {...}}
//
// Logs go to stderr; stdout is reserved for protocol messages.
//
// # Tool: generate_docs
//
//	Request:
//	{
//	  "name": "generate_docs",
//	  "arguments": {
//	    "path": "/path/to/project",
//	    "output_dir": "docs",
//	    "index": true
//	  }
//	}
//
//	Response:
//	{
//	  "run_id": "4f0c...",
//	  "units_found": 12,
//	  "units_summarized": 11,
//	  "documents_indexed": 11,
//	  "artifacts": [{"path": "/path/to/project/docs/project_documentation.json", "written": true}, ...],
//	  "skipped": [{"unit_id": "broken.go", "stage": "extract", "reason": "..."}],
//	  "skipped_count": 1
//	}
//
// # Tool: search_reports
//
//	Request:
//	{
//	  "name": "search_reports",
//	  "arguments": {"query": "authentication flow", "k": 3, "mode": "hybrid"}
//	}
//
//	Response:
//	{
//	  "results": [{"rank": 1, "doc_id": "auth/login.go", "score": 0.031, "summary": "..."}]
//	}
//
// # Tool: index_reports
//
// Each regular file directly inside dir is indexed with its file name as the
// document ID. Unreadable or non UTF-8 files are skipped, not fatal.
//
//	Request:
//	{"name": "index_reports", "arguments": {"dir": "/path/to/reports"}}
//
//	Response:
//	{"dir": "/path/to/reports", "indexed": ["billing.md"], "indexed_count": 1, "duration_ms": 4}
//
// # Error Handling
//
// Tool failures are returned as MCPError values:
//   - -32602: Invalid params (missing/invalid arguments)
//   - -32603: Internal error
//   - -32001: Path holds no matching source files
//   - -32002: A documentation run is already in progress
//   - -32003: No index available
//   - -32004: Empty query
package mcp
