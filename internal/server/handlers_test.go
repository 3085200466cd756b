package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/searchpdf-mcp/internal/pipeline"
	"github.com/ironsheep/searchpdf-mcp/internal/raster"
)

// fakeConverter records calls and returns canned results.
type fakeConverter struct {
	output []byte
	err    error
	pages  int

	gotSrc  []byte
	gotLang any
}

func (f *fakeConverter) Run(_ context.Context, src []byte, languages any) (*pipeline.Result, error) {
	f.gotSrc = src
	f.gotLang = languages
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.Result{
		JobID:    "job-1",
		Route:    pipeline.RouteRaster,
		Language: "por+eng",
		Pages:    2,
		Output:   f.output,
		Duration: 1500 * time.Millisecond,
	}, nil
}

func (f *fakeConverter) Capabilities(context.Context) pipeline.Capabilities {
	return pipeline.Capabilities{Rasterizer: true, Backend: "cli", Route: pipeline.RouteRaster, Language: "por+eng"}
}

func (f *fakeConverter) PageCount(src []byte) (int, error) {
	f.gotSrc = src
	if f.err != nil {
		return 0, f.err
	}
	return f.pages, nil
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *MCPResponse {
	t.Helper()
	params := map[string]interface{}{"name": name}
	if args != nil {
		params["arguments"] = args
	}
	paramsJSON, err := json.Marshal(params)
	require.NoError(t, err)

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  paramsJSON,
	})
	require.NotNil(t, resp)
	return resp
}

// toolText extracts the JSON text of a successful tool call.
func toolText(t *testing.T, resp *MCPResponse) string {
	t.Helper()
	require.Nil(t, resp.Error, "unexpected error: %+v", resp.Error)
	result, ok := resp.Result.(map[string]interface{})
	require.True(t, ok)
	content, ok := result["content"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, content, 1)
	assert.Equal(t, "text", content[0]["type"])
	text, ok := content[0]["text"].(string)
	require.True(t, ok)
	return text
}

func writeInput(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "scan.pdf")
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))
	return path
}

func TestMakeSearchable(t *testing.T) {
	conv := &fakeConverter{output: []byte("%PDF-1.7 searchable")}
	s := New(conv, nil, "")
	in := writeInput(t, "%PDF-1.7 scanned")
	out := filepath.Join(t.TempDir(), "out.pdf")

	resp := callTool(t, s, ToolMakeSearchable, map[string]interface{}{
		"input_path":  in,
		"output_path": out,
		"languages":   []string{"por", "eng"},
	})

	var got MakeSearchableResult
	require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &got))
	assert.Equal(t, MakeSearchableResult{
		JobID:      "job-1",
		OutputPath: out,
		Route:      pipeline.RouteRaster,
		Language:   "por+eng",
		Pages:      2,
		Bytes:      19,
		Size:       "19 B",
		DurationMS: 1500,
	}, got)

	assert.Equal(t, []byte("%PDF-1.7 scanned"), conv.gotSrc)
	assert.Equal(t, []interface{}{"por", "eng"}, conv.gotLang)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 searchable", string(written))

	leftovers, err := filepath.Glob(filepath.Join(filepath.Dir(out), ".searchpdf-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestMakeSearchable_DefaultLanguages(t *testing.T) {
	conv := &fakeConverter{output: []byte("%PDF")}
	s := New(conv, nil, "")

	callTool(t, s, ToolMakeSearchable, map[string]interface{}{
		"input_path":  writeInput(t, "%PDF"),
		"output_path": filepath.Join(t.TempDir(), "out.pdf"),
	})
	assert.Nil(t, conv.gotLang)
}

func TestMakeSearchable_ConversionError(t *testing.T) {
	conv := &fakeConverter{err: &raster.FailedError{Page: 2, Listing: "input.pdf 8 B"}}
	s := New(conv, nil, "")
	out := filepath.Join(t.TempDir(), "out.pdf")

	resp := callTool(t, s, ToolMakeSearchable, map[string]interface{}{
		"input_path":  writeInput(t, "%PDF"),
		"output_path": out,
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32000, resp.Error.Code)
	data, ok := resp.Error.Data.(ToolErrorData)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindRasterizationFailed, data.Kind)
	assert.Contains(t, data.Error, "page 2")

	_, err := os.Stat(out)
	assert.True(t, os.IsNotExist(err), "no output on failure")
}

func TestMakeSearchable_NoRoute(t *testing.T) {
	conv := &fakeConverter{err: fmt.Errorf("%w: neither ocrmypdf nor pdftoppm is installed", pipeline.ErrNoOCRRoute)}
	s := New(conv, nil, "")

	resp := callTool(t, s, ToolMakeSearchable, map[string]interface{}{
		"input_path":  writeInput(t, "%PDF"),
		"output_path": filepath.Join(t.TempDir(), "out.pdf"),
	})

	require.NotNil(t, resp.Error)
	data, ok := resp.Error.Data.(ToolErrorData)
	require.True(t, ok)
	assert.Equal(t, "NoOcrRouteAvailable", data.Kind)
}

func TestMakeSearchable_MissingInput(t *testing.T) {
	conv := &fakeConverter{}
	s := New(conv, nil, "")

	resp := callTool(t, s, ToolMakeSearchable, map[string]interface{}{
		"input_path":  filepath.Join(t.TempDir(), "missing.pdf"),
		"output_path": filepath.Join(t.TempDir(), "out.pdf"),
	})

	require.NotNil(t, resp.Error)
	data, ok := resp.Error.Data.(ToolErrorData)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindInvalidInput, data.Kind)
	assert.Nil(t, conv.gotSrc, "converter not called")
}

func TestMakeSearchable_BadArguments(t *testing.T) {
	s := New(&fakeConverter{}, nil, "")

	tests := []struct {
		name string
		args interface{}
	}{
		{"no arguments", nil},
		{"missing output", map[string]interface{}{"input_path": "/a.pdf"}},
		{"wrong type", map[string]interface{}{"input_path": 12, "output_path": "/b.pdf"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := callTool(t, s, ToolMakeSearchable, tt.args)
			require.NotNil(t, resp.Error)
			assert.Equal(t, -32602, resp.Error.Code)
		})
	}
}

func TestCapabilitiesTool(t *testing.T) {
	s := New(&fakeConverter{}, nil, "")

	resp := callTool(t, s, ToolCapabilities, nil)

	assert.JSONEq(t, `{
		"bundler": false,
		"rasterizer": true,
		"tesseract": false,
		"backend": "cli",
		"route": "raster",
		"default_language": "por+eng"
	}`, toolText(t, resp))
}

func TestPageCountTool(t *testing.T) {
	conv := &fakeConverter{pages: 7}
	s := New(conv, nil, "")
	path := writeInput(t, "%PDF-1.4")

	resp := callTool(t, s, ToolPageCount, map[string]interface{}{"path": path})

	var got PageCountResult
	require.NoError(t, json.Unmarshal([]byte(toolText(t, resp)), &got))
	assert.Equal(t, PageCountResult{Path: path, Pages: 7}, got)
	assert.Equal(t, []byte("%PDF-1.4"), conv.gotSrc)
}

func TestPageCountTool_Errors(t *testing.T) {
	conv := &fakeConverter{err: fmt.Errorf("%w: %w", pipeline.ErrInvalidInput, raster.ErrNotPDF)}
	s := New(conv, nil, "")

	resp := callTool(t, s, ToolPageCount, map[string]interface{}{"path": writeInput(t, "GIF89a")})
	require.NotNil(t, resp.Error)
	data, ok := resp.Error.Data.(ToolErrorData)
	require.True(t, ok)
	assert.Equal(t, pipeline.KindInvalidInput, data.Kind)

	resp = callTool(t, s, ToolPageCount, map[string]interface{}{})
	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestHandleToolsCall_UnknownTool(t *testing.T) {
	s := New(&fakeConverter{}, nil, "")

	resp := callTool(t, s, "image_crop", nil)

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
	assert.Contains(t, resp.Error.Data, "unknown tool: image_crop")
}

func TestHandleToolsCall_InvalidParams(t *testing.T) {
	s := New(&fakeConverter{}, nil, "")

	resp := s.handleRequest(context.Background(), &MCPRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  "tools/call",
		Params:  []byte(`"not an object"`),
	})

	require.NotNil(t, resp.Error)
	assert.Equal(t, -32602, resp.Error.Code)
}

func TestWriteFileAtomic_ReplacesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.pdf")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o600))

	require.NoError(t, writeFileAtomic(path, []byte("new")))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))

	err = writeFileAtomic(filepath.Join(t.TempDir(), "missing", "out.pdf"), []byte("x"))
	assert.Error(t, err)
}
