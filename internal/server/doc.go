// Package server implements the MCP (Model Context Protocol) server for
// mammogram lesion analysis.
//
// This package provides a JSON-RPC 2.0 server that exposes the analysis
// pipeline through the MCP protocol, so MCP-compatible clients can send a
// mammogram and get back annotated images with per-lesion classifications
// and measurements.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
// Basic Image Information:
//   - image_load: Load image and get metadata
//   - image_dimensions: Get width and height
//
// Analysis:
//   - lesion_analyze: Detect, merge, classify, measure and annotate lesions
//   - lesion_features: Measure one lesion given a mask image
//
// Region Operations:
//   - lesion_crop: The classifier's 224x224 adaptive crop around a box
//
// Operations:
//   - backend_health: Check the inference services
//
// # Pixel Spacing
//
// Physical measurements need the size of a pixel in millimetres. A call may
// pass pixel_spacing, or pixel_spacing_row together with pixel_spacing_col.
// Otherwise the server's configured default applies. Spacing is only
// required when a lesion is actually measured.
//
// # Image Caching
//
// image_load and image_dimensions share a small in-memory cache keyed by
// path. An entry is reused only while the file's modification time and size
// are unchanged. The analysis tools (lesion_analyze, lesion_features and
// lesion_crop) never use the cache: each call decodes its inputs afresh and
// drops them when it returns.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32602 for bad arguments or unknown tools, -32000 otherwise
//   - message: Human-readable error description
//   - data: The error string, or for analysis failures an object with the
//     failing stage, the error kind and whether a retry may help
//
// # Usage
//
//	srv := server.New(server.Options{Log: log, Analyzer: analyzer})
//	if err := srv.Run(); err != nil {
//	    log.Criticalf("%v", err)
//	}
package server
