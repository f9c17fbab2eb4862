package classify

import (
	"encoding/json"
	"fmt"
	"os"

	"gonum.org/v1/gonum/mat"
)

// StandardScaler subtracts a per-column mean and divides by a per-column
// scale. A nil Mean or Scale skips that step.
type StandardScaler struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LoadStandardScaler reads a fitted scaler from a JSON file of the form
// {"mean": [...], "scale": [...]}. Zero scales are replaced by 1.
func LoadStandardScaler(path string) (*StandardScaler, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scaler: %w", err)
	}

	var s StandardScaler
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scaler %s: %w", path, err)
	}
	if s.Mean != nil && s.Scale != nil && len(s.Mean) != len(s.Scale) {
		return nil, fmt.Errorf("scaler %s: %d means but %d scales", path, len(s.Mean), len(s.Scale))
	}
	for i, v := range s.Scale {
		if v == 0 {
			s.Scale[i] = 1
		}
	}
	return &s, nil
}

// Transform implements Scaler.
func (s *StandardScaler) Transform(x *mat.Dense) (*mat.Dense, error) {
	_, cols := x.Dims()
	if s.Mean != nil && len(s.Mean) != cols {
		return nil, fmt.Errorf("scaler fitted on %d features, got %d", len(s.Mean), cols)
	}
	if s.Scale != nil && len(s.Scale) != cols {
		return nil, fmt.Errorf("scaler fitted on %d features, got %d", len(s.Scale), cols)
	}

	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		if s.Mean != nil {
			v -= s.Mean[j]
		}
		if s.Scale != nil {
			v /= s.Scale[j]
		}
		return v
	}, x)
	return &out, nil
}
