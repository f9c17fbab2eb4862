package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

func pathProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "string",
		"description": description,
	}
}

func spacingProperties(props map[string]interface{}) map[string]interface{} {
	props["pixel_spacing"] = map[string]interface{}{
		"type":        "number",
		"description": "Isotropic pixel spacing in millimetres. Defaults to the server's configured spacing.",
	}
	props["pixel_spacing_row"] = map[string]interface{}{
		"type":        "number",
		"description": "Row (vertical) pixel spacing in millimetres. Requires pixel_spacing_col.",
	}
	props["pixel_spacing_col"] = map[string]interface{}{
		"type":        "number",
		"description": "Column (horizontal) pixel spacing in millimetres. Requires pixel_spacing_row.",
	}
	return props
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		// Basic Image Information
		{
			Name:        "image_load",
			Description: "Load a PNG or JPEG mammogram and return its dimensions, format and color model. The decoded image is cached for later calls.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image file.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				},
				"required": []string{"path"},
			},
		},

		// Analysis
		{
			Name: "lesion_analyze",
			Description: "Detect lesions in a mammogram, merge overlapping detections, classify each lesion as benign or malignant " +
				"and measure its shape, intensity and texture. Returns annotated JPEG images (base64) and per-lesion records.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": spacingProperties(map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
				}),
				"required": []string{"path"},
			},
		},
		{
			Name:        "lesion_features",
			Description: "Measure a lesion from a binary mask image: area, perimeter, circularity, eccentricity, mean and standard deviation of intensity, and GLCM homogeneity.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": spacingProperties(map[string]interface{}{
					"path":      pathProperty("Absolute path to the image file"),
					"mask_path": pathProperty("Absolute path to a gray mask of the same size; pixels above 50% intensity are lesion"),
				}),
				"required": []string{"path", "mask_path"},
			},
		},

		// Region Operations
		{
			Name:        "lesion_crop",
			Description: "Cut the smallest standard square window (112 to 1500 px) that contains a box and resize it to the 224x224 classifier input. Returns base64 PNG and the chosen window.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": pathProperty("Absolute path to the image file"),
					"x1": map[string]interface{}{
						"type":        "integer",
						"description": "Left edge X coordinate (0-based)",
					},
					"y1": map[string]interface{}{
						"type":        "integer",
						"description": "Top edge Y coordinate (0-based)",
					},
					"x2": map[string]interface{}{
						"type":        "integer",
						"description": "Right edge X coordinate",
					},
					"y2": map[string]interface{}{
						"type":        "integer",
						"description": "Bottom edge Y coordinate",
					},
				},
				"required": []string{"path", "x1", "y1", "x2", "y2"},
			},
		},

		// Operations
		{
			Name:        "backend_health",
			Description: "Check the detector, embedding and classifier services and report which are reachable.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
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
