package annotate

import (
	"github.com/ironsheep/lesion-mcp/internal/classify"
	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/features"
)

// StatusSuccess is the status of every completed analysis.
const StatusSuccess = "success"

// Prediction is the per-lesion part of a Report. Image fields are base64 JPEG.
type Prediction struct {
	// Image is the full image with only this lesion drawn.
	Image string `json:"image"`

	// Label is the detector class name, e.g. "mass".
	Label string `json:"label"`

	Classification classify.Label `json:"classification"`
	Score          float64        `json:"score"`
	Box            detection.Box  `json:"box"`

	// Features is nil when no region survived cleanup.
	Features *features.Record `json:"features"`

	// Crop is the unannotated neighbourhood of the lesion.
	Crop string `json:"crop"`
}

// Report is the result of one analysis. When Detections is false only
// FullImage is set and it holds the original image.
type Report struct {
	Status                string       `json:"status"`
	Detections            bool         `json:"detections"`
	FullImage             string       `json:"full_image"`
	FullNormalImage       string       `json:"full_normal_image,omitempty"`
	IndividualPredictions []Prediction `json:"individual_predictions,omitempty"`

	// Errors lists artifacts that could not be encoded.
	Errors []string `json:"errors,omitempty"`
}
