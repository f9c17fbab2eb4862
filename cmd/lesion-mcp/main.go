package main

import (
	"context"
	"fmt"
	"os"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/logs"

	"github.com/ironsheep/lesion-mcp/internal/annotate"
	"github.com/ironsheep/lesion-mcp/internal/classify"
	"github.com/ironsheep/lesion-mcp/internal/config"
	"github.com/ironsheep/lesion-mcp/internal/detection"
	"github.com/ironsheep/lesion-mcp/internal/features"
	"github.com/ironsheep/lesion-mcp/internal/imaging"
	"github.com/ironsheep/lesion-mcp/internal/inference"
	"github.com/ironsheep/lesion-mcp/internal/logging"
	"github.com/ironsheep/lesion-mcp/internal/pipeline"
	"github.com/ironsheep/lesion-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	parser := argparse.NewParser("lesion-mcp", "MCP server for mammogram lesion analysis. Speaks MCP over stdin/stdout.")
	version := parser.Flag("v", "version", &argparse.Options{Help: "Print version information"})
	envFile := parser.String("e", "env", &argparse.Options{Help: "KEY=VALUE file to load before reading LESION_* settings (default .env if present)"})
	check := parser.Flag("", "check", &argparse.Options{Help: "Check the inference services and exit"})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	if *version {
		fmt.Printf("lesion-mcp %s\n", Version)
		fmt.Printf("  Build time: %s\n", BuildTime)
		fmt.Printf("  Git commit: %s\n", GitCommit)
		return
	}

	if err := config.LoadEnvFile(*envFile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg := config.Load()

	// stdout is for MCP protocol
	level, err := logging.ParseLevel(cfg.LogLevel)
	log := logging.New(level)
	if err != nil {
		log.Warnf("%v, using info", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Criticalf("Invalid configuration: %v", err)
		os.Exit(1)
	}
	log.Infof("Lesion MCP Server %s (built %s, commit %s)", Version, BuildTime, GitCommit)

	srv, err := build(cfg, log)
	if err != nil {
		log.Criticalf("%v", err)
		os.Exit(1)
	}

	if *check {
		if !srv.CheckBackends(context.Background()) {
			os.Exit(1)
		}
		return
	}

	if err := srv.Run(); err != nil {
		log.Criticalf("Server error: %v", err)
		os.Exit(1)
	}
}

// build wires the inference clients, the analysis pipeline and the MCP
// server from cfg.
func build(cfg *config.Config, log logs.Log) (*server.Server, error) {
	scaler, err := classify.LoadStandardScaler(cfg.ScalerPath)
	if err != nil {
		return nil, err
	}

	gate := inference.NewGate(cfg.InferenceConcurrency)
	client := inference.NewClient(log, cfg.InferenceTimeout, gate)

	detector := &inference.RemoteDetector{Client: client, URL: cfg.DetectorURL}
	classifier := &inference.RemoteClassifier{Client: client, URL: cfg.ClassifierURL}
	backends := []server.NamedBackend{{Name: "detector", Backend: detector}}

	var embedders classify.Concat
	for i, url := range cfg.EmbedderURLs {
		e := &inference.RemoteEmbedder{Client: client, URL: url}
		embedders = append(embedders, e)
		backends = append(backends, server.NamedBackend{Name: fmt.Sprintf("embedder-%d", i+1), Backend: e})
	}
	backends = append(backends, server.NamedBackend{Name: "classifier", Backend: classifier})

	merger := &detection.Merger{IoUThreshold: cfg.MergeIoU, ScoreThreshold: cfg.ScoreThreshold}
	extractor := &features.Extractor{MinRegionPixels: cfg.MinRegionPx}
	compositor := annotate.NewCompositor(log, cfg.Classes)
	compositor.JPEGQuality = cfg.JPEGQuality

	analyzer := pipeline.NewAnalyzer(log, pipeline.Components{
		Detector:   detector,
		Merger:     merger,
		Classifier: classify.NewOrchestrator(log, embedders, scaler, classifier),
		Extractor:  extractor,
		Compositor: compositor,
	})

	return server.New(server.Options{
		Log:            log,
		Cache:          imaging.NewImageCacheWithLimit(cfg.MaxUploadBytes),
		Analyzer:       analyzer,
		Extractor:      extractor,
		Backends:       backends,
		RequestTimeout: cfg.RequestTimeout,
		PixelSpacingMM: cfg.PixelSpacingMM,
	}), nil
}
