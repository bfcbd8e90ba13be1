// Package service is the single orchestration path shared by the command
// line and the MCP server: run the pipeline, write the report artifacts,
// record the run and answer queries against the embedding index. Report
// files from earlier runs can be added to the index with IndexReports.
package service
