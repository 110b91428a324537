// Package main provides the docpipeline worker binary. It loads the
// service configuration, wires the pipeline processor to Postgres, blob
// storage, and Kafka, then processes the upload ids given on the
// command line.
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/schoolsafe/docpipeline/pkg/blob"
	"github.com/schoolsafe/docpipeline/pkg/config"
	"github.com/schoolsafe/docpipeline/pkg/logging"
	"github.com/schoolsafe/docpipeline/pkg/metrics"
	"github.com/schoolsafe/docpipeline/pkg/pii"
	"github.com/schoolsafe/docpipeline/pkg/pipeline"
	"github.com/schoolsafe/docpipeline/pkg/quarantine"
	"github.com/schoolsafe/docpipeline/pkg/receipt"
	"github.com/schoolsafe/docpipeline/pkg/store"
	"github.com/schoolsafe/docpipeline/pkg/stream"
	"github.com/schoolsafe/docpipeline/pkg/threat"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	configPath := flag.String("config", "configs/docpipeline.yaml", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *showVersion {
		fmt.Printf("docpipeline-worker v%s (built %s)\n", Version, BuildTime)
		os.Exit(0)
	}

	if err := run(*configPath, flag.Args()); err != nil {
		fmt.Fprintf(os.Stderr, "docpipeline-worker: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string, uploadIDs []string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return err
	}

	log := logging.NewStdLogger(cfg.Service.ID, logging.ParseLevel(cfg.Logging.Level))

	if len(uploadIDs) == 0 {
		return fmt.Errorf("no upload ids given; usage: docpipeline-worker [-config path] <upload-id> [...]")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		log.Info("received signal %v, shutting down", sig)
		cancel()
	}()

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("parsing database dsn: %w", err)
	}
	if cfg.Database.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxConns)
	}
	if cfg.Database.MinConns > 0 {
		poolCfg.MinConns = int32(cfg.Database.MinConns)
	}
	if cfg.Database.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Database.MaxConnLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer pool.Close()

	blobs, err := blob.NewFSStore(cfg.Blob.BaseDir)
	if err != nil {
		return fmt.Errorf("opening blob store: %w", err)
	}

	scanner, err := buildThreatScanner(cfg.Threat, log)
	if err != nil {
		return err
	}

	opts := []pipeline.ProcessorOption{
		pipeline.WithLogger(log),
		pipeline.WithMetrics(metrics.New()),
		pipeline.WithQuarantine(quarantine.NewEngineWithPrefix(blobs, cfg.Blob.QuarantineDir)),
		pipeline.WithThreatScanner(scanner),
		pipeline.WithPIIScanner(pii.NewScannerWithConfig(piiScanConfig(cfg.PII))),
	}

	if cfg.Pipeline.MinTextLength > 0 {
		opts = append(opts, pipeline.WithMinTextLength(cfg.Pipeline.MinTextLength))
	}
	if cfg.Pipeline.StageTimeout > 0 {
		opts = append(opts, pipeline.WithStageTimeout(cfg.Pipeline.StageTimeout))
	}
	if cfg.Threat.MaxFileSize > 0 {
		opts = append(opts, pipeline.WithMaxFileSize(cfg.Threat.MaxFileSize))
	}

	if cfg.Receipts.Enabled {
		opts = append(opts, pipeline.WithReceiptIssuer(receipt.NewIssuer([]byte(cfg.Receipts.SigningKey))))
	}

	if cfg.Streaming.Enabled {
		streamCfg := stream.DefaultStreamerConfig()
		streamCfg.Brokers = cfg.Streaming.Kafka.Brokers
		if cfg.Streaming.Kafka.Topics.Events != "" {
			streamCfg.Topics.Events = cfg.Streaming.Kafka.Topics.Events
		}
		if cfg.Streaming.Kafka.Topics.Security != "" {
			streamCfg.Topics.Security = cfg.Streaming.Kafka.Topics.Security
		}
		if cfg.Streaming.Kafka.Topics.Failures != "" {
			streamCfg.Topics.Failures = cfg.Streaming.Kafka.Topics.Failures
		}
		if cfg.Streaming.Kafka.Producer.BatchSize > 0 {
			streamCfg.BatchSize = cfg.Streaming.Kafka.Producer.BatchSize
		}
		if cfg.Streaming.Kafka.Producer.FlushInterval > 0 {
			streamCfg.FlushInterval = cfg.Streaming.Kafka.Producer.FlushInterval
		}
		if cfg.Streaming.Kafka.Producer.Compression != "" {
			streamCfg.Compression = cfg.Streaming.Kafka.Producer.Compression
		}
		if cfg.Streaming.Kafka.Producer.RequiredAcks != "" {
			streamCfg.RequiredAcks = cfg.Streaming.Kafka.Producer.RequiredAcks
		}

		streamer, err := stream.NewKafkaStreamer(streamCfg)
		if err != nil {
			return fmt.Errorf("connecting to kafka: %w", err)
		}
		defer streamer.Close()
		opts = append(opts, pipeline.WithStreamer(streamer))
	}

	if cfg.Server.Metrics.Port > 0 {
		go serveMetrics(cfg.Server.Metrics, log)
	}

	processor := pipeline.NewProcessor(store.NewPostgresStore(pool), blobs, opts...)

	workers := cfg.Pipeline.Workers
	if workers < 1 {
		workers = 1
	}

	log.Info("docpipeline-worker v%s processing %d upload(s) with %d worker(s)", Version, len(uploadIDs), workers)

	return processUploads(ctx, processor, uploadIDs, workers, log)
}

// processUploads fans the upload ids out over a bounded pool. A run
// failure counts against the exit status; an infrastructure error from
// the processor aborts the batch.
func processUploads(ctx context.Context, processor pipeline.Processor, uploadIDs []string, workers int, log logging.Logger) error {
	if workers > len(uploadIDs) {
		workers = len(uploadIDs)
	}

	type outcome struct {
		id  string
		res *pipeline.ProcessResult
		err error
	}

	idCh := make(chan string)
	outCh := make(chan outcome)

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idCh {
				res, err := processor.Process(ctx, pipeline.ProcessingContext{UploadID: id})
				outCh <- outcome{id: id, res: res, err: err}
			}
		}()
	}

	go func() {
		defer close(idCh)
		for _, id := range uploadIDs {
			select {
			case idCh <- id:
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		wg.Wait()
		close(outCh)
	}()

	failures := 0
	var firstErr error
	for o := range outCh {
		switch {
		case o.err != nil:
			if firstErr == nil {
				firstErr = fmt.Errorf("processing upload %s: %w", o.id, o.err)
			}
		case !o.res.Success:
			failures++
			log.Warn("upload %s failed at %s: %s", o.id, o.res.FailedStage, o.res.Error)
		default:
			log.Info("upload %s completed in %s with %d artifact(s)", o.id, o.res.ProcessingTime, len(o.res.Artifacts))
		}
	}

	if firstErr != nil {
		return firstErr
	}
	if failures > 0 {
		return fmt.Errorf("%d of %d upload(s) failed", failures, len(uploadIDs))
	}
	return nil
}

// buildThreatScanner assembles the virus-scan engine from configuration:
// the built-in signature set, optionally merged with an operator-supplied
// signature file, and a configurable head size for content heuristics.
func buildThreatScanner(cfg config.ThreatConfig, log logging.Logger) (threat.Scanner, error) {
	sigs := threat.DefaultSignatureSet()
	if cfg.SignatureFile != "" {
		loaded, err := threat.LoadSignatureSet(cfg.SignatureFile)
		if err != nil {
			return nil, fmt.Errorf("loading signature file: %w", err)
		}
		sigs = loaded
	}

	threatOpts := []threat.Option{threat.WithLogger(log)}
	if cfg.HeadSize > 0 {
		threatOpts = append(threatOpts, threat.WithHeadSize(cfg.HeadSize))
	}
	return threat.NewScanner(sigs, threatOpts...), nil
}

// piiScanConfig maps the service configuration onto the scanner's
// config, keeping the scanner defaults for anything left unset.
func piiScanConfig(cfg config.PIIConfig) *pii.ScanConfig {
	sc := pii.DefaultScanConfig()
	if cfg.MinConfidence > 0 {
		sc.MinConfidence = cfg.MinConfidence
	}
	if cfg.ContextWindow > 0 {
		sc.ContextWindow = cfg.ContextWindow
	}
	if len(cfg.ExcludedSSNs) > 0 {
		sc.ExcludedSSNs = cfg.ExcludedSSNs
	}
	if len(cfg.ExcludedAreaCodes) > 0 {
		sc.ExcludedAreaCodes = cfg.ExcludedAreaCodes
	}
	if len(cfg.ExcludedEmailDomains) > 0 {
		sc.ExcludedEmailDomains = cfg.ExcludedEmailDomains
	}
	return sc
}

func serveMetrics(cfg config.MetricsServerConfig, log logging.Logger) {
	path := cfg.Path
	if path == "" {
		path = "/metrics"
	}

	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("metrics server: %v", err)
	}
}
