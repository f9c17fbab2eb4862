package server

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/cyclopcam/logs"

	"github.com/ironsheep/lesion-mcp/internal/features"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
	"github.com/ironsheep/lesion-mcp/internal/logging"
	"github.com/ironsheep/lesion-mcp/internal/pipeline"
)

const (
	serverName      = "lesion-mcp"
	serverVersion   = "0.1.0"
	protocolVersion = "2024-11-05"
)

// Backend is a remote service the server can health-check.
type Backend interface {
	Health(ctx context.Context) error
}

// NamedBackend pairs a Backend with the name reported by backend_health.
type NamedBackend struct {
	Name string
	Backend
}

// Options configure a Server.
type Options struct {
	Log       logs.Log
	Cache     *imaging.ImageCache
	Analyzer  *pipeline.Analyzer
	Extractor *features.Extractor
	Backends  []NamedBackend

	// RequestTimeout bounds a single tools/call. Zero means no limit.
	RequestTimeout time.Duration

	// PixelSpacingMM is used when a call does not supply spacing. Zero
	// means callers must supply it.
	PixelSpacingMM float64
}

// Server handles MCP protocol communication
type Server struct {
	log       logs.Log
	cache     *imaging.ImageCache
	analyzer  *pipeline.Analyzer
	extractor *features.Extractor
	backends  []NamedBackend

	requestTimeout time.Duration
	pixelSpacingMM float64
}

// MCPRequest represents an incoming JSON-RPC request
type MCPRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      interface{}     `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
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

// MCPNotification represents an outgoing notification (no ID)
type MCPNotification struct {
	JSONRPC string      `json:"jsonrpc"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// New creates a new MCP server instance. A nil log, cache or extractor is
// replaced with a default one.
func New(opts Options) *Server {
	s := &Server{
		log:            opts.Log,
		cache:          opts.Cache,
		analyzer:       opts.Analyzer,
		extractor:      opts.Extractor,
		backends:       opts.Backends,
		requestTimeout: opts.RequestTimeout,
		pixelSpacingMM: opts.PixelSpacingMM,
	}
	if s.log == nil {
		s.log = logging.New(logs.LevelInfo)
	}
	if s.cache == nil {
		s.cache = imaging.NewImageCache()
	}
	if s.extractor == nil {
		s.extractor = features.NewExtractor()
	}
	return s
}

// Run starts the MCP server, reading from stdin and writing to stdout
func (s *Server) Run() error {
	return s.Serve(os.Stdin, os.Stdout)
}

// Serve reads newline-delimited requests from r and writes responses to w
// until r is exhausted.
func (s *Server) Serve(r io.Reader, w io.Writer) error {
	scanner := bufio.NewScanner(r)
	// Increase buffer size for large requests
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	encoder := json.NewEncoder(w)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}

		var req MCPRequest
		if err := json.Unmarshal(line, &req); err != nil {
			s.log.Warnf("Failed to parse request: %v", err)
			if err := encoder.Encode(s.errorResponse(nil, -32700, "Parse error", err.Error())); err != nil {
				s.log.Errorf("Failed to encode response: %v", err)
			}
			continue
		}

		resp := s.handleRequest(&req)
		if resp != nil {
			if err := encoder.Encode(resp); err != nil {
				s.log.Errorf("Failed to encode response: %v", err)
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scanner error: %w", err)
	}

	return nil
}

// handleRequest routes requests to appropriate handlers
func (s *Server) handleRequest(req *MCPRequest) *MCPResponse {
	switch req.Method {
	case "initialize":
		return s.handleInitialize(req)
	case "notifications/initialized":
		// Client acknowledgment, no response needed
		return nil
	case "tools/list":
		return s.handleToolsList(req)
	case "tools/call":
		return s.handleToolsCall(req)
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
			"protocolVersion": protocolVersion,
			"capabilities": map[string]interface{}{
				"tools": map[string]interface{}{},
			},
			"serverInfo": map[string]interface{}{
				"name":    serverName,
				"version": serverVersion,
			},
		},
	}
}
