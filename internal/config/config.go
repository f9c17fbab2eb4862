package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DetectorURL   string
	EmbedderURLs  []string // outputs are concatenated in this order
	ClassifierURL string
	ScalerPath    string

	Classes        []string // label n maps to Classes[n-1]
	ScoreThreshold float64
	MergeIoU       float64
	MinRegionPx    int
	PixelSpacingMM float64 // 0 means callers must supply spacing

	InferenceConcurrency int
	InferenceTimeout     time.Duration
	RequestTimeout       time.Duration

	MaxUploadBytes int64
	JPEGQuality    int
	LogLevel       string
}

// LoadEnvFile reads KEY=VALUE pairs from path into the environment without
// overriding variables that are already set. A missing default ".env" is
// not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
		if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
			return nil
		}
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func Load() *Config {
	return &Config{
		DetectorURL: getEnv("LESION_DETECTOR_URL", "http://localhost:8500/v1/detect"),
		EmbedderURLs: getEnvAsList("LESION_EMBEDDER_URLS", []string{
			"http://localhost:8500/v1/embed/densenet",
			"http://localhost:8500/v1/embed/convnext",
		}),
		ClassifierURL: getEnv("LESION_CLASSIFIER_URL", "http://localhost:8500/v1/classify"),
		ScalerPath:    getEnv("LESION_SCALER_PATH", "models/scaler.json"),

		Classes:        getEnvAsList("LESION_CLASSES", []string{"calc", "mass"}),
		ScoreThreshold: getEnvAsFloat("LESION_SCORE_THRESHOLD", 0.5),
		MergeIoU:       getEnvAsFloat("LESION_MERGE_IOU", 0.0),
		MinRegionPx:    getEnvAsInt("LESION_MIN_REGION_PX", 10),
		PixelSpacingMM: getEnvAsFloat("LESION_PIXEL_SPACING_MM", 0),

		InferenceConcurrency: getEnvAsInt("LESION_INFERENCE_CONCURRENCY", 1),
		InferenceTimeout:     getEnvAsDuration("LESION_INFERENCE_TIMEOUT", 60*time.Second),
		RequestTimeout:       getEnvAsDuration("LESION_REQUEST_TIMEOUT", 120*time.Second),

		MaxUploadBytes: getEnvAsInt64("LESION_MAX_UPLOAD_BYTES", 10*1024*1024),
		JPEGQuality:    getEnvAsInt("LESION_JPEG_QUALITY", 95),
		LogLevel:       getEnv("LESION_LOG_LEVEL", "info"),
	}
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch {
	case c.DetectorURL == "":
		return errors.New("LESION_DETECTOR_URL is empty")
	case len(c.EmbedderURLs) == 0:
		return errors.New("LESION_EMBEDDER_URLS is empty")
	case c.ClassifierURL == "":
		return errors.New("LESION_CLASSIFIER_URL is empty")
	case len(c.Classes) == 0:
		return errors.New("LESION_CLASSES is empty")
	case c.ScoreThreshold < 0 || c.ScoreThreshold >= 1:
		return fmt.Errorf("LESION_SCORE_THRESHOLD %v is outside [0, 1)", c.ScoreThreshold)
	case c.MergeIoU >= 1:
		return fmt.Errorf("LESION_MERGE_IOU %v must be below 1", c.MergeIoU)
	case c.PixelSpacingMM < 0:
		return fmt.Errorf("LESION_PIXEL_SPACING_MM %v is negative", c.PixelSpacingMM)
	case c.JPEGQuality < 1 || c.JPEGQuality > 100:
		return fmt.Errorf("LESION_JPEG_QUALITY %d is outside 1-100", c.JPEGQuality)
	case c.MaxUploadBytes <= 0:
		return fmt.Errorf("LESION_MAX_UPLOAD_BYTES %d must be positive", c.MaxUploadBytes)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
