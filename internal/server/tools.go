package server

// Tool names.
const (
	ToolMakeSearchable = "pdf_make_searchable"
	ToolCapabilities   = "ocr_capabilities"
	ToolPageCount      = "pdf_page_count"
)

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name: ToolMakeSearchable,
			Description: "Run OCR over an image-only PDF and write a searchable copy with a text layer. " +
				"Uses ocrmypdf when installed, otherwise renders each page with pdftoppm and recognizes it with Tesseract.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"input_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the source PDF",
					},
					"output_path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path for the searchable PDF. Overwritten if it exists",
					},
					"languages": map[string]interface{}{
						"description": "Tesseract language codes, e.g. \"por+eng\" or [\"por\", \"eng\"]. Defaults to the server's configured languages",
						"oneOf": []interface{}{
							map[string]interface{}{"type": "string"},
							map[string]interface{}{
								"type":  "array",
								"items": map[string]interface{}{"type": "string"},
							},
						},
					},
				},
				"required": []string{"input_path", "output_path"},
			},
		},
		{
			Name:        ToolCapabilities,
			Description: "Report which OCR tools are installed on the host and which conversion route would be used.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        ToolPageCount,
			Description: "Count the pages of a PDF file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Absolute path to the PDF file",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
