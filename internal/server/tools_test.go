package server

import (
	"testing"
)

func toolByName(t *testing.T, name string) Tool {
	t.Helper()
	for _, tool := range GetToolDefinitions() {
		if tool.Name == name {
			return tool
		}
	}
	t.Fatalf("tool %s not defined", name)
	return Tool{}
}

func requiredOf(t *testing.T, tool Tool) []string {
	t.Helper()
	required, ok := tool.InputSchema["required"].([]string)
	if !ok {
		return nil
	}
	return required
}

func TestGetToolDefinitions(t *testing.T) {
	expectedTools := []string{
		"image_load",
		"image_dimensions",
		"lesion_analyze",
		"lesion_features",
		"lesion_crop",
		"backend_health",
	}

	tools := GetToolDefinitions()
	if len(tools) != len(expectedTools) {
		t.Errorf("tool count: got %d, want %d", len(tools), len(expectedTools))
	}

	seen := make(map[string]bool)
	for _, tool := range tools {
		if seen[tool.Name] {
			t.Errorf("duplicate tool %s", tool.Name)
		}
		seen[tool.Name] = true
	}
	for _, name := range expectedTools {
		if !seen[name] {
			t.Errorf("Expected tool %s not found", name)
		}
	}
}

func TestToolDefinitions_Structure(t *testing.T) {
	for _, tool := range GetToolDefinitions() {
		t.Run(tool.Name, func(t *testing.T) {
			if tool.Description == "" {
				t.Error("Tool description is empty")
			}
			if tool.InputSchema["type"] != "object" {
				t.Errorf("InputSchema type: got %v, want 'object'", tool.InputSchema["type"])
			}
			props, ok := tool.InputSchema["properties"].(map[string]interface{})
			if !ok {
				t.Fatal("InputSchema properties should be a map")
			}
			for _, r := range requiredOf(t, tool) {
				if _, ok := props[r]; !ok {
					t.Errorf("required parameter %s has no property", r)
				}
			}
		})
	}
}

func TestToolDefinitions_RequiredPath(t *testing.T) {
	for _, name := range []string{"image_load", "image_dimensions", "lesion_analyze", "lesion_features", "lesion_crop"} {
		t.Run(name, func(t *testing.T) {
			hasPath := false
			for _, r := range requiredOf(t, toolByName(t, name)) {
				if r == "path" {
					hasPath = true
				}
			}
			if !hasPath {
				t.Error("Tool should require 'path' parameter")
			}
		})
	}
}

func TestToolDefinitions_SpacingIsOptional(t *testing.T) {
	for _, name := range []string{"lesion_analyze", "lesion_features"} {
		t.Run(name, func(t *testing.T) {
			tool := toolByName(t, name)
			props := tool.InputSchema["properties"].(map[string]interface{})
			for _, p := range []string{"pixel_spacing", "pixel_spacing_row", "pixel_spacing_col"} {
				prop, ok := props[p].(map[string]interface{})
				if !ok {
					t.Errorf("missing property %s", p)
					continue
				}
				if prop["type"] != "number" {
					t.Errorf("%s type: got %v, want number", p, prop["type"])
				}
				for _, r := range requiredOf(t, tool) {
					if r == p {
						t.Errorf("%s should be optional", p)
					}
				}
			}
		})
	}
}

func TestToolDefinitions_CropCoordinates(t *testing.T) {
	tool := toolByName(t, "lesion_crop")
	props := tool.InputSchema["properties"].(map[string]interface{})

	for _, c := range []string{"x1", "y1", "x2", "y2"} {
		prop, ok := props[c].(map[string]interface{})
		if !ok {
			t.Errorf("missing coordinate %s", c)
			continue
		}
		if prop["type"] != "integer" {
			t.Errorf("%s type: got %v, want integer", c, prop["type"])
		}
	}
	if got := len(requiredOf(t, tool)); got != 5 {
		t.Errorf("required count: got %d, want 5", got)
	}
}

func TestHandleToolsList(t *testing.T) {
	s := newTestServer(t, Options{})
	resp := s.handleToolsList(&MCPRequest{JSONRPC: "2.0", ID: 1})

	if resp == nil {
		t.Fatal("handleToolsList returned nil")
	}
	if resp.Error != nil {
		t.Fatalf("Unexpected error: %v", resp.Error)
	}

	result, ok := resp.Result.(map[string]interface{})
	if !ok {
		t.Fatal("Result should be a map")
	}
	toolsList, ok := result["tools"].([]Tool)
	if !ok {
		t.Fatal("tools should be a slice of Tool")
	}
	if len(toolsList) != len(GetToolDefinitions()) {
		t.Errorf("Tool count: got %d, want %d", len(toolsList), len(GetToolDefinitions()))
	}
}
