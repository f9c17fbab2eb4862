package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/ironsheep/lesion-mcp/internal/annotate"
	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/features"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
	"github.com/ironsheep/lesion-mcp/internal/pipeline"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "image_load", "lesion_analyze").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
// Analysis failures carry the failing stage in the error data.
func (s *Server) handleToolsCall(req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	ctx := context.Background()
	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		var argErr *argumentError
		if errors.As(err, &argErr) {
			return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
		}
		return s.errorResponse(req.ID, -32000, "Tool execution failed", toolErrorData(err))
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
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	// Basic Image Information
	case "image_load":
		return s.handleImageLoad(args)
	case "image_dimensions":
		return s.handleImageDimensions(args)

	// Analysis
	case "lesion_analyze":
		return s.handleLesionAnalyze(ctx, args)
	case "lesion_features":
		return s.handleLesionFeatures(args)

	// Region Operations
	case "lesion_crop":
		return s.handleLesionCrop(args)

	// Operations
	case "backend_health":
		return s.handleBackendHealth(ctx)

	default:
		return nil, &argumentError{fmt.Errorf("unknown tool: %s", name)}
	}
}

// argumentError marks a failure caused by the call's arguments.
type argumentError struct {
	err error
}

func (e *argumentError) Error() string { return e.err.Error() }
func (e *argumentError) Unwrap() error { return e.err }

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return &argumentError{err}
	}
	return nil
}

// stageErrorData is the error data of a failed analysis.
type stageErrorData struct {
	Stage     pipeline.Stage `json:"stage"`
	Kind      string         `json:"kind"`
	Retryable bool           `json:"retryable"`
	Message   string         `json:"message"`
}

func toolErrorData(err error) interface{} {
	if se, ok := pipeline.AsStageError(err); ok {
		return stageErrorData{
			Stage:     se.Stage,
			Kind:      se.Kind.String(),
			Retryable: se.Retryable(),
			Message:   se.Err.Error(),
		}
	}
	return err.Error()
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
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Basic Image Information Handlers ===

type imageLoadArgs struct {
	Path string `json:"path"`
}

func (s *Server) handleImageLoad(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.LoadImageInfo(s.cache, a.Path)
}

func (s *Server) handleImageDimensions(args json.RawMessage) (interface{}, error) {
	var a imageLoadArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	return imaging.GetDimensions(s.cache, a.Path)
}

// === Analysis Handlers ===

// loadInput reads an analysis input for the current call only. Inputs never
// go through the image cache.
func (s *Server) loadInput(path string) (image.Image, error) {
	return imaging.LoadFile(path, s.cache.MaxBytes())
}

type spacingArgs struct {
	PixelSpacing    *float64 `json:"pixel_spacing"`
	PixelSpacingRow *float64 `json:"pixel_spacing_row"`
	PixelSpacingCol *float64 `json:"pixel_spacing_col"`
}

// spacing resolves the call's pixel spacing. Explicit row and column
// spacing wins over the isotropic value, which wins over the server default.
// The result is not validated: analysis only needs it when lesions are found.
func (s *Server) spacing(a spacingArgs) (features.Spacing, error) {
	switch {
	case a.PixelSpacingRow != nil || a.PixelSpacingCol != nil:
		if a.PixelSpacingRow == nil || a.PixelSpacingCol == nil {
			return features.Spacing{}, &argumentError{errors.New("pixel_spacing_row and pixel_spacing_col must be given together")}
		}
		return features.Spacing{Row: *a.PixelSpacingRow, Col: *a.PixelSpacingCol}, nil
	case a.PixelSpacing != nil:
		return features.Isotropic(*a.PixelSpacing), nil
	}
	return features.Isotropic(s.pixelSpacingMM), nil
}

type lesionAnalyzeArgs struct {
	Path string `json:"path"`
	spacingArgs
}

// analyzeResult is an analysis report tagged with the id its log lines carry.
type analyzeResult struct {
	RequestID string `json:"request_id"`
	*annotate.Report
}

func (s *Server) handleLesionAnalyze(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a lesionAnalyzeArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	if s.analyzer == nil {
		return nil, errors.New("analysis pipeline is not configured")
	}
	spacing, err := s.spacing(a.spacingArgs)
	if err != nil {
		return nil, err
	}

	img, err := s.loadInput(a.Path)
	if err != nil {
		return nil, err
	}

	id := uuid.NewString()
	log := logs.NewPrefixLogger(s.log, id)
	start := time.Now()
	log.Infof("Analyzing %s", a.Path)

	report, err := s.analyzer.DetectAndAnalyzeWithLog(ctx, log, img, spacing)
	if err != nil {
		log.Errorf("Analysis failed after %v: %v", time.Since(start), err)
		return nil, err
	}
	log.Infof("Analysis finished in %v: %d lesions", time.Since(start), len(report.IndividualPredictions))

	return &analyzeResult{RequestID: id, Report: report}, nil
}

type lesionFeaturesArgs struct {
	Path     string `json:"path"`
	MaskPath string `json:"mask_path"`
	spacingArgs
}

// featuresResult holds a record, or the reason there is none.
type featuresResult struct {
	Features *features.Record `json:"features"`
	Reason   string           `json:"reason,omitempty"`
}

func (s *Server) handleLesionFeatures(args json.RawMessage) (interface{}, error) {
	var a lesionFeaturesArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	spacing, err := s.spacing(a.spacingArgs)
	if err != nil {
		return nil, err
	}

	img, err := s.loadInput(a.Path)
	if err != nil {
		return nil, err
	}
	maskImg, err := s.loadInput(a.MaskPath)
	if err != nil {
		return nil, fmt.Errorf("mask: %w", err)
	}

	mask := detection.ProbMapFromImage(maskImg).Binarize(detection.BinarizeThreshold)
	rec, err := s.extractor.Extract(mask, imaging.NewLuminance(img), spacing)
	if errors.Is(err, features.ErrNoRegion) {
		return &featuresResult{Reason: err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}
	return &featuresResult{Features: rec}, nil
}

// === Region Operation Handlers ===

type lesionCropArgs struct {
	Path string `json:"path"`
	X1   int    `json:"x1"`
	Y1   int    `json:"y1"`
	X2   int    `json:"x2"`
	Y2   int    `json:"y2"`
}

func (s *Server) handleLesionCrop(args json.RawMessage) (interface{}, error) {
	var a lesionCropArgs
	if err := unmarshalArgs(args, &a); err != nil {
		return nil, err
	}
	img, err := s.loadInput(a.Path)
	if err != nil {
		return nil, err
	}
	return imaging.AdaptiveCropResult(img, a.X1, a.Y1, a.X2, a.Y2)
}

// === Operations Handlers ===

// BackendStatus is one entry of the backend_health result.
type BackendStatus struct {
	Name      string `json:"name"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
}

type backendHealthResult struct {
	Healthy  bool            `json:"healthy"`
	Backends []BackendStatus `json:"backends"`
}

func (s *Server) handleBackendHealth(ctx context.Context) (interface{}, error) {
	return s.backendHealth(ctx), nil
}

// CheckBackends checks every backend once, logs the outcome and reports
// whether all of them answered.
func (s *Server) CheckBackends(ctx context.Context) bool {
	res := s.backendHealth(ctx)
	for _, st := range res.Backends {
		if st.OK {
			s.log.Infof("Backend %s OK (%d ms)", st.Name, st.LatencyMS)
		}
	}
	return res.Healthy
}

func (s *Server) backendHealth(ctx context.Context) *backendHealthResult {
	statuses := make([]BackendStatus, len(s.backends))

	var g errgroup.Group
	for i, b := range s.backends {
		g.Go(func() error {
			start := time.Now()
			err := b.Health(ctx)
			statuses[i] = BackendStatus{
				Name:      b.Name,
				OK:        err == nil,
				LatencyMS: time.Since(start).Milliseconds(),
			}
			if err != nil {
				statuses[i].Error = err.Error()
				s.log.Warnf("Backend %s unhealthy: %v", b.Name, err)
			}
			return nil
		})
	}
	g.Wait()

	result := &backendHealthResult{Healthy: true, Backends: statuses}
	for _, st := range statuses {
		if !st.OK {
			result.Healthy = false
		}
	}
	return result
}
