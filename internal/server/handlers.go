package server

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/pipeline"
)

// JSON-RPC error codes.
const (
	codeInvalidParams = -32602
	codeToolFailed    = -32000
)

// errBadArguments marks tool arguments that are missing or malformed.
var errBadArguments = errors.New("bad arguments")

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "pdf_make_searchable").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments jsoniter.RawMessage `json:"arguments"`
}

// ToolErrorData is attached to failed tool calls so clients can branch on
// the failure category.
type ToolErrorData struct {
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000
// whose data is a ToolErrorData.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		if errors.Is(err, errBadArguments) {
			return s.errorResponse(req.ID, codeInvalidParams, "Invalid params", err.Error())
		}
		s.logger.Warn("tool failed", zap.String("tool", params.Name), zap.Error(err))
		return s.errorResponse(req.ID, codeToolFailed, "Tool execution failed", ToolErrorData{
			Kind:  pipeline.Kind(err),
			Error: err.Error(),
		})
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args jsoniter.RawMessage) (interface{}, error) {
	switch name {
	case ToolMakeSearchable:
		return s.handleMakeSearchable(ctx, args)
	case ToolCapabilities:
		return s.conv.Capabilities(ctx), nil
	case ToolPageCount:
		return s.handlePageCount(args)
	default:
		return nil, fmt.Errorf("%w: unknown tool: %s", errBadArguments, name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message string, data interface{}) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure it returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// decodeArgs unmarshals tool arguments; absent arguments decode as {}.
func decodeArgs(args jsoniter.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return nil
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", errBadArguments, err)
	}
	return nil
}

type makeSearchableArgs struct {
	InputPath  string `json:"input_path"`
	OutputPath string `json:"output_path"`
	// Languages is a string or a list of strings.
	Languages interface{} `json:"languages,omitempty"`
}

// MakeSearchableResult is returned by pdf_make_searchable.
type MakeSearchableResult struct {
	JobID      string         `json:"job_id"`
	OutputPath string         `json:"output_path"`
	Route      pipeline.Route `json:"route"`
	Language   string         `json:"language"`
	Pages      int            `json:"pages,omitempty"`
	Bytes      int            `json:"bytes"`
	Size       string         `json:"size"`
	DurationMS int64          `json:"duration_ms"`
}

func (s *Server) handleMakeSearchable(ctx context.Context, args jsoniter.RawMessage) (interface{}, error) {
	var a makeSearchableArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.InputPath == "" || a.OutputPath == "" {
		return nil, fmt.Errorf("%w: input_path and output_path are required", errBadArguments)
	}

	src, err := os.ReadFile(a.InputPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrInvalidInput, err)
	}

	res, err := s.conv.Run(ctx, src, a.Languages)
	if err != nil {
		return nil, err
	}
	if err := writeFileAtomic(a.OutputPath, res.Output); err != nil {
		return nil, err
	}

	return &MakeSearchableResult{
		JobID:      res.JobID,
		OutputPath: a.OutputPath,
		Route:      res.Route,
		Language:   res.Language,
		Pages:      res.Pages,
		Bytes:      len(res.Output),
		Size:       humanize.Bytes(uint64(len(res.Output))),
		DurationMS: res.Duration.Milliseconds(),
	}, nil
}

type pageCountArgs struct {
	Path string `json:"path"`
}

// PageCountResult is returned by pdf_page_count.
type PageCountResult struct {
	Path  string `json:"path"`
	Pages int    `json:"pages"`
}

func (s *Server) handlePageCount(args jsoniter.RawMessage) (interface{}, error) {
	var a pageCountArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, fmt.Errorf("%w: path is required", errBadArguments)
	}

	src, err := os.ReadFile(a.Path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", pipeline.ErrInvalidInput, err)
	}
	n, err := s.conv.PageCount(src)
	if err != nil {
		return nil, err
	}
	return &PageCountResult{Path: a.Path, Pages: n}, nil
}

// writeFileAtomic writes data to a temporary file beside path and renames it
// into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".searchpdf-*.tmp")
	if err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return fmt.Errorf("write output: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Chmod(name, 0o644); err != nil {
		os.Remove(name)
		return fmt.Errorf("write output: %w", err)
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
