// Package server implements the MCP (Model Context Protocol) server that
// exposes the searchable-PDF pipeline.
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to the injected zap logger, which must not write to stdout.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - pdf_make_searchable: OCR input_path and write the result to output_path
//   - ocr_capabilities: Report installed tools and the route a conversion takes
//   - pdf_page_count: Count the pages of a PDF
//
// # Error Handling
//
// Malformed arguments and unknown tools are answered with code -32602.
// Failed conversions return code -32000 with a ToolErrorData payload whose
// kind is one of the pipeline error kinds (NoOcrRouteAvailable,
// RasterizationFailed, BundlerToolFailed, ...).
//
// # Usage
//
//	conv, err := pipeline.New(cfg, pipeline.WithLogger(logger))
//	if err != nil {
//	    return err
//	}
//	srv := server.New(conv, logger, version)
//	return srv.Run(ctx)
package server
