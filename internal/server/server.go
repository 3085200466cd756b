package server

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/ironsheep/searchpdf-mcp/internal/pipeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ProtocolVersion is the MCP revision the server speaks.
const ProtocolVersion = "2024-11-05"

// Name is reported in serverInfo.
const Name = "searchpdf-mcp"

// Converter is the part of *pipeline.Converter the server calls.
type Converter interface {
	Run(ctx context.Context, src []byte, languages any) (*pipeline.Result, error)
	Capabilities(ctx context.Context) pipeline.Capabilities
	PageCount(src []byte) (int, error)
}

// Server handles MCP protocol communication
type Server struct {
	conv    Converter
	logger  *zap.Logger
	version string
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string              `json:"jsonrpc"`
	ID      interface{}         `json:"id"`
	Method  string              `json:"method"`
	Params  jsoniter.RawMessage `json:"params,omitempty"`
}

// MCPResponse represents an outgoing JSON-RPC response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents a JSON-RPC error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// New creates a server that runs conversions through conv.
func New(conv Converter, logger *zap.Logger, version string) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if version == "" {
		version = "dev"
	}
	return &Server{conv: conv, logger: logger.Named("mcp"), version: version}
}

// Run serves stdin/stdout until stdin closes.
func (s *Server) Run(ctx context.Context) error {
	return s.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve reads one request per line from r and writes responses to w.
// Requests are handled in order; a conversion blocks the loop until it ends.
func (s *Server) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return err
		}
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.logger.Warn("failed to parse request", zap.Error(err))
			continue
		}

		resp := s.handleRequest(ctx, &req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.logger.Error("failed to encode response", zap.String("method", req.Method), zap.Error(err))
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(ctx context.Context, req *MCPRequest) *MCPResponse {
	s.logger.Debug("request", zap.String("method", req.Method), zap.Any("id", req.ID))

	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(ctx, req)
	case "ping":
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Result:  map[string]interface{}{},
		}
	default:
		return &MCPResponse{
			JSONRPC: "2.0",
			ID:      req.ID,
			Error: &MCPError{
				Code:    -32601,
				Message: fmt.Sprintf("Method not found: %s", req.Method),
			},
		}
	}
}

// handleInitialize responds to the initialize request
func (s *Server) handleInitialize(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"protocolVersion": ProtocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    Name,
				"version": s.version,
			},
		},
	}
}
