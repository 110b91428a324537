package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/schoolsafe/docpipeline/pkg/analysis"
	"github.com/schoolsafe/docpipeline/pkg/artifact"
	"github.com/schoolsafe/docpipeline/pkg/blob"
	"github.com/schoolsafe/docpipeline/pkg/entity"
	"github.com/schoolsafe/docpipeline/pkg/extract"
	"github.com/schoolsafe/docpipeline/pkg/frameworks"
	"github.com/schoolsafe/docpipeline/pkg/logging"
	"github.com/schoolsafe/docpipeline/pkg/metrics"
	"github.com/schoolsafe/docpipeline/pkg/pii"
	"github.com/schoolsafe/docpipeline/pkg/quarantine"
	"github.com/schoolsafe/docpipeline/pkg/receipt"
	"github.com/schoolsafe/docpipeline/pkg/store"
	"github.com/schoolsafe/docpipeline/pkg/stream"
	"github.com/schoolsafe/docpipeline/pkg/threat"
	"github.com/schoolsafe/docpipeline/pkg/types"
)

// defaultMinTextLength is the extraction floor: fewer characters is a
// hard "insufficient content" failure, not an empty-but-valid result.
const defaultMinTextLength = 100

// defaultProcessor is the standard implementation of the Processor
// interface. Collaborators default to the built-in implementations and
// can be swapped through options.
type defaultProcessor struct {
	store store.Store
	blobs blob.Store

	threatScanner  threat.Scanner
	extractor      extract.Extractor
	piiScanner     pii.Scanner
	entityDetector entity.Detector
	mapper         frameworks.Mapper
	gapAnalyzer    analysis.GapAnalyzer
	redliner       analysis.PolicyRedliner
	generator      artifact.Generator

	streamer   stream.Streamer
	issuer     receipt.Issuer
	dispatcher quarantine.Engine
	metrics    metrics.PipelineMetrics
	logger     logging.Logger

	minTextLength int
	maxFileSize   int
	stageTimeout  time.Duration
}

// ProcessorOption configures the processor
type ProcessorOption func(*defaultProcessor)

// WithThreatScanner overrides the virus scan engine.
func WithThreatScanner(s threat.Scanner) ProcessorOption {
	return func(p *defaultProcessor) { p.threatScanner = s }
}

// WithExtractor overrides the text extractor.
func WithExtractor(e extract.Extractor) ProcessorOption {
	return func(p *defaultProcessor) { p.extractor = e }
}

// WithPIIScanner overrides the PII scanner.
func WithPIIScanner(s pii.Scanner) ProcessorOption {
	return func(p *defaultProcessor) { p.piiScanner = s }
}

// WithEntityDetector overrides the entity detector.
func WithEntityDetector(d entity.Detector) ProcessorOption {
	return func(p *defaultProcessor) { p.entityDetector = d }
}

// WithFrameworkMapper overrides the framework mapper.
func WithFrameworkMapper(m frameworks.Mapper) ProcessorOption {
	return func(p *defaultProcessor) { p.mapper = m }
}

// WithGapAnalyzer overrides the gap analyzer.
func WithGapAnalyzer(a analysis.GapAnalyzer) ProcessorOption {
	return func(p *defaultProcessor) { p.gapAnalyzer = a }
}

// WithPolicyRedliner overrides the policy redliner.
func WithPolicyRedliner(r analysis.PolicyRedliner) ProcessorOption {
	return func(p *defaultProcessor) { p.redliner = r }
}

// WithArtifactGenerator overrides the artifact generator.
func WithArtifactGenerator(g artifact.Generator) ProcessorOption {
	return func(p *defaultProcessor) { p.generator = g }
}

// WithStreamer enables pipeline event publishing.
func WithStreamer(s stream.Streamer) ProcessorOption {
	return func(p *defaultProcessor) { p.streamer = s }
}

// WithReceiptIssuer enables signed processing receipts.
func WithReceiptIssuer(i receipt.Issuer) ProcessorOption {
	return func(p *defaultProcessor) { p.issuer = i }
}

// WithQuarantine enables file disposition for infected uploads.
func WithQuarantine(e quarantine.Engine) ProcessorOption {
	return func(p *defaultProcessor) { p.dispatcher = e }
}

// WithMetrics overrides the metrics sink.
func WithMetrics(m metrics.PipelineMetrics) ProcessorOption {
	return func(p *defaultProcessor) { p.metrics = m }
}

// WithLogger overrides the logger.
func WithLogger(l logging.Logger) ProcessorOption {
	return func(p *defaultProcessor) { p.logger = l }
}

// WithMinTextLength overrides the extraction floor.
func WithMinTextLength(n int) ProcessorOption {
	return func(p *defaultProcessor) { p.minTextLength = n }
}

// WithMaxFileSize rejects uploads larger than n bytes before they are
// scanned. Zero means unlimited.
func WithMaxFileSize(n int) ProcessorOption {
	return func(p *defaultProcessor) { p.maxFileSize = n }
}

// WithStageTimeout bounds each stage to d. A stage that overruns fails
// the run at that stage. Zero means no per-stage deadline.
func WithStageTimeout(d time.Duration) ProcessorOption {
	return func(p *defaultProcessor) { p.stageTimeout = d }
}

// NewProcessor creates a processor with the built-in collaborators.
func NewProcessor(st store.Store, blobs blob.Store, opts ...ProcessorOption) Processor {
	p := &defaultProcessor{
		store:          st,
		blobs:          blobs,
		threatScanner:  threat.NewScanner(threat.DefaultSignatureSet()),
		extractor:      extract.NewPlainTextExtractor(),
		piiScanner:     pii.NewScanner(),
		entityDetector: entity.NewDetector(),
		mapper:         frameworks.NewMapper(),
		gapAnalyzer:    analysis.NewGapAnalyzer(),
		redliner:       analysis.NewPolicyRedliner(),
		generator:      artifact.NewGenerator(blobs),
		metrics:        metrics.Noop{},
		logger:         logging.NewStdLogger("pipeline", logging.LevelInfo),
		minTextLength:  defaultMinTextLength,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// runState carries intermediate products across stages of one run.
type runState struct {
	start       time.Time
	upload      *types.DocumentUpload
	fileData    []byte
	extracted   string
	workingText string
	piiResult   *pii.ScanResult
	entities    types.Entities
	institution *types.Institution
	frameworks  []string
	gaps        []types.GapAnalysis
	redlines    []types.Redline
	result      *types.ProcessingResult
	artifacts   []types.GeneratedArtifact
}

// Process drives one upload through all eight stages.
func (p *defaultProcessor) Process(ctx context.Context, pc ProcessingContext) (*ProcessResult, error) {
	start := time.Now()

	upload, err := p.store.GetUpload(ctx, pc.UploadID)
	if err != nil {
		return nil, fmt.Errorf("loading upload %s: %w", pc.UploadID, err)
	}

	if err := p.setUploadStatus(ctx, upload.ID, types.UploadStatusProcessing, nil); err != nil {
		return nil, fmt.Errorf("marking upload %s processing: %w", pc.UploadID, err)
	}

	p.metrics.IncRunsStarted()
	p.logger.Info("processing upload %s (%s)", upload.ID, upload.FileName)

	tracker := newStageTracker()
	state := &runState{start: start, upload: upload}

	stages := []struct {
		name StageName
		run  func(ctx context.Context, state *runState) error
	}{
		{StageVirusScan, p.runVirusScan},
		{StageTextExtraction, p.runTextExtraction},
		{StagePIIDetection, p.runPIIDetection},
		{StageEntityRecognition, p.runEntityRecognition},
		{StageFrameworkMapping, p.runFrameworkMapping},
		{StageGapAnalysis, p.runGapAnalysis},
		{StagePolicyRedlining, p.runPolicyRedlining},
		{StageArtifactGeneration, p.runArtifactGeneration},
	}

	for _, s := range stages {
		if err := p.runStage(ctx, tracker, s.name, state, s.run); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return p.failRun(ctx, tracker, state, s.name, err, start), nil
		}
	}

	elapsed := time.Since(start)
	p.metrics.IncRunsCompleted()
	p.metrics.ObserveRunDuration(elapsed)

	result := &ProcessResult{
		Success:        true,
		UploadID:       upload.ID,
		Stages:         tracker.snapshot(),
		Result:         state.result,
		Artifacts:      state.artifacts,
		ProcessingTime: elapsed,
	}

	if p.issuer != nil && state.result != nil {
		r, err := p.issuer.Issue(ctx, receipt.IssueRequest{
			UploadID:          upload.ID,
			ResultID:          state.result.ID,
			ExtractedTextHash: state.result.ExtractedTextHash,
			Success:           true,
			CompletedAt:       time.Now().UTC(),
		})
		if err != nil {
			p.logger.Warn("receipt issue failed for upload %s: %v", upload.ID, err)
		} else {
			result.Receipt = r
		}
	}

	p.publish(ctx, stream.Event{
		ID:            uuid.New().String(),
		Type:          stream.EventPipelineCompleted,
		Timestamp:     time.Now().UTC(),
		UploadID:      upload.ID,
		InstitutionID: upload.InstitutionID,
		Detail: map[string]string{
			"frameworks":  strconv.Itoa(len(state.frameworks)),
			"gaps":        strconv.Itoa(len(state.gaps)),
			"artifacts":   strconv.Itoa(len(state.artifacts)),
			"duration_ms": strconv.FormatInt(elapsed.Milliseconds(), 10),
		},
	})

	p.logger.Info("upload %s completed in %s", upload.ID, elapsed)
	return result, nil
}

// runStage wraps one stage body with the state machine transitions,
// timing, metrics, and the stage-completed event.
func (p *defaultProcessor) runStage(ctx context.Context, tracker *stageTracker, name StageName, state *runState, run func(context.Context, *runState) error) error {
	if err := ctx.Err(); err != nil {
		if markErr := tracker.markRunning(name); markErr == nil {
			_ = tracker.markFailed(name, err)
		}
		return err
	}

	if err := tracker.markRunning(name); err != nil {
		return err
	}

	stageCtx := ctx
	if p.stageTimeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, p.stageTimeout)
		defer cancel()
	}

	stageStart := time.Now()
	err := run(stageCtx, state)
	p.metrics.ObserveStageDuration(string(name), time.Since(stageStart))

	if err != nil {
		_ = tracker.markFailed(name, err)
		p.metrics.IncStageFailures(string(name))
		return err
	}

	if err := tracker.markCompleted(name); err != nil {
		return err
	}

	p.publish(ctx, stream.Event{
		ID:            uuid.New().String(),
		Type:          stream.EventStageCompleted,
		Timestamp:     time.Now().UTC(),
		UploadID:      state.upload.ID,
		InstitutionID: state.upload.InstitutionID,
		Stage:         string(name),
	})
	return nil
}

// failRun performs the failure bookkeeping: mark the upload FAILED,
// upsert an error-only result so failed runs stay queryable, and emit
// the failure event. Failure is returned as data, never as an error.
func (p *defaultProcessor) failRun(ctx context.Context, tracker *stageTracker, state *runState, failed StageName, stageErr error, start time.Time) *ProcessResult {
	elapsed := time.Since(start)
	upload := state.upload

	p.logger.Error("upload %s failed at %s: %v", upload.ID, failed, stageErr)
	p.metrics.IncRunsFailed(string(failed))

	if err := p.setUploadStatus(ctx, upload.ID, types.UploadStatusFailed, nil); err != nil {
		p.logger.Error("marking upload %s failed: %v", upload.ID, err)
	}

	errResult := &types.ProcessingResult{
		UploadID:       upload.ID,
		ErrorMessage:   stageErr.Error(),
		ProcessingTime: elapsed,
	}
	if err := p.store.UpsertProcessingResult(ctx, errResult); err != nil {
		p.logger.Error("persisting failed result for upload %s: %v", upload.ID, err)
	}

	p.publish(ctx, stream.Event{
		ID:            uuid.New().String(),
		Type:          stream.EventPipelineFailed,
		Timestamp:     time.Now().UTC(),
		UploadID:      upload.ID,
		InstitutionID: upload.InstitutionID,
		Stage:         string(failed),
		Severity:      types.SeverityHigh,
		Detail:        map[string]string{"error": stageErr.Error()},
	})

	result := &ProcessResult{
		Success:        false,
		UploadID:       upload.ID,
		FailedStage:    failed,
		Error:          stageErr.Error(),
		Stages:         tracker.snapshot(),
		ProcessingTime: elapsed,
	}

	if p.issuer != nil {
		r, err := p.issuer.Issue(ctx, receipt.IssueRequest{
			UploadID:    upload.ID,
			ResultID:    errResult.ID,
			Success:     false,
			CompletedAt: time.Now().UTC(),
		})
		if err != nil {
			p.logger.Warn("receipt issue failed for upload %s: %v", upload.ID, err)
		} else {
			result.Receipt = r
		}
	}

	return result
}

// runVirusScan reads the stored file and scans it. An infected result
// fails the run with an error naming the detected threats, after the
// disposition engine (when configured) has isolated or removed the file.
func (p *defaultProcessor) runVirusScan(ctx context.Context, state *runState) error {
	data, err := p.blobs.Get(ctx, state.upload.FilePath)
	if err != nil {
		return fmt.Errorf("reading uploaded file: %w", err)
	}
	if p.maxFileSize > 0 && len(data) > p.maxFileSize {
		return fmt.Errorf("file too large: %d bytes exceeds limit of %d", len(data), p.maxFileSize)
	}
	state.fileData = data

	sr := p.threatScanner.ScanNamed(ctx, data, state.upload.FileName)
	for cat, n := range sr.Summary() {
		for i := 0; i < n; i++ {
			p.metrics.IncThreatsDetected(string(cat))
		}
	}

	if !sr.Infected {
		return nil
	}

	names := make([]string, 0, len(sr.Detections))
	for _, d := range sr.Detections {
		names = append(names, d.Name)
	}

	p.publish(ctx, stream.Event{
		ID:            uuid.New().String(),
		Type:          stream.EventThreatDetected,
		Timestamp:     time.Now().UTC(),
		UploadID:      state.upload.ID,
		InstitutionID: state.upload.InstitutionID,
		Stage:         string(StageVirusScan),
		Severity:      sr.MaxSeverity(),
		Detail:        categoryDetail(sr),
	})

	if p.dispatcher != nil {
		decision, err := p.dispatcher.Evaluate(ctx, quarantine.EvaluateRequest{
			UploadID:   state.upload.ID,
			FileName:   state.upload.FileName,
			StorageKey: state.upload.FilePath,
			ScanResult: sr,
		})
		if err != nil {
			p.logger.Error("disposition evaluation for upload %s: %v", state.upload.ID, err)
		} else if _, err := p.dispatcher.Execute(ctx, decision); err != nil {
			p.logger.Error("disposition execution for upload %s: %v", state.upload.ID, err)
		}
	}

	return fmt.Errorf("threat scan failed: detected %s", strings.Join(names, ", "))
}

// runTextExtraction materializes the scanned bytes to a scratch file so
// the extractor can dispatch on the original file extension.
func (p *defaultProcessor) runTextExtraction(ctx context.Context, state *runState) error {
	dir, err := os.MkdirTemp("", "docpipeline-extract-")
	if err != nil {
		return fmt.Errorf("creating scratch dir: %w", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, filepath.Base(state.upload.FileName))
	if err := os.WriteFile(path, state.fileData, 0o600); err != nil {
		return fmt.Errorf("writing scratch file: %w", err)
	}

	res, err := p.extractor.Extract(ctx, path)
	if err != nil {
		return fmt.Errorf("text extraction: %w", err)
	}

	if n := utf8.RuneCountInString(res.Text); n < p.minTextLength {
		return fmt.Errorf("insufficient content: extracted %d characters, need at least %d", n, p.minTextLength)
	}

	state.extracted = res.Text
	state.workingText = res.Text
	return nil
}

// runPIIDetection scans the extracted text, stores the redacted copy,
// and persists the de-identification flag on the upload. Finding PII is
// not a failure; all downstream stages consume the redacted text.
func (p *defaultProcessor) runPIIDetection(ctx context.Context, state *runState) error {
	sr := p.piiScanner.Scan(state.extracted)
	state.piiResult = sr

	for _, f := range sr.Findings {
		p.metrics.IncPIIFindings(string(f.Type))
	}

	update := store.UploadUpdate{PIIDetected: &sr.HasPII}

	if sr.HasPII {
		key := fmt.Sprintf("redactions/%s/redacted.txt", state.upload.ID)
		url, err := p.blobs.Put(ctx, key, []byte(sr.RedactedText))
		if err != nil {
			return fmt.Errorf("storing redacted text: %w", err)
		}
		update.PIIRedactedURL = &url
		state.workingText = sr.RedactedText

		p.logger.Info("upload %s: %d PII findings redacted", state.upload.ID, len(sr.Findings))

		severity := types.SeverityMedium
		if sr.Summary.CriticalFindings > 0 {
			severity = types.SeverityCritical
		}
		p.publish(ctx, stream.Event{
			ID:            uuid.New().String(),
			Type:          stream.EventPIIDetected,
			Timestamp:     time.Now().UTC(),
			UploadID:      state.upload.ID,
			InstitutionID: state.upload.InstitutionID,
			Stage:         string(StagePIIDetection),
			Severity:      severity,
			Detail: map[string]string{
				"findings": strconv.Itoa(sr.Summary.TotalFindings),
				"critical": strconv.Itoa(sr.Summary.CriticalFindings),
			},
		})
	}

	if err := p.store.UpdateUpload(ctx, state.upload.ID, update); err != nil {
		return fmt.Errorf("persisting PII flag: %w", err)
	}
	state.upload.PIIDetected = sr.HasPII
	if update.PIIRedactedURL != nil {
		state.upload.PIIRedactedURL = *update.PIIRedactedURL
	}
	return nil
}

func (p *defaultProcessor) runEntityRecognition(ctx context.Context, state *runState) error {
	state.entities = p.entityDetector.DetectEntities(state.workingText)
	return nil
}

func (p *defaultProcessor) runFrameworkMapping(ctx context.Context, state *runState) error {
	inst, err := p.store.GetInstitution(ctx, state.upload.InstitutionID)
	if err != nil {
		return fmt.Errorf("loading institution %s: %w", state.upload.InstitutionID, err)
	}
	state.institution = inst

	fws, err := p.mapper.MapFrameworks(ctx, state.workingText, state.upload.DocumentType, inst.Type)
	if err != nil {
		return fmt.Errorf("framework mapping: %w", err)
	}
	state.frameworks = fws
	return nil
}

func (p *defaultProcessor) runGapAnalysis(ctx context.Context, state *runState) error {
	gaps, err := p.gapAnalyzer.Analyze(ctx, state.workingText, state.frameworks, state.entities)
	if err != nil {
		return fmt.Errorf("gap analysis: %w", err)
	}
	state.gaps = gaps
	return nil
}

// runPolicyRedlining generates redlines and then persists the full
// analytical result, so that a crash in artifact generation does not
// lose the work already done.
func (p *defaultProcessor) runPolicyRedlining(ctx context.Context, state *runState) error {
	redlines, err := p.redliner.GenerateRedlines(ctx, state.workingText, state.frameworks, state.gaps)
	if err != nil {
		return fmt.Errorf("policy redlining: %w", err)
	}
	state.redlines = redlines

	hash := sha256.Sum256([]byte(state.extracted))
	result := &types.ProcessingResult{
		UploadID:          state.upload.ID,
		ExtractedTextHash: hex.EncodeToString(hash[:]),
		Entities:          state.entities,
		Frameworks:        state.frameworks,
		GapAnalyses:       state.gaps,
		Redlines:          state.redlines,
		ProcessingTime:    time.Since(state.start),
	}

	if err := p.store.UpsertProcessingResult(ctx, result); err != nil {
		return fmt.Errorf("persisting processing result: %w", err)
	}
	state.result = result
	return nil
}

// runArtifactGeneration produces the output files, persists each as a
// child record, and marks the upload COMPLETE.
func (p *defaultProcessor) runArtifactGeneration(ctx context.Context, state *runState) error {
	artifacts, err := p.generator.GenerateAll(ctx, artifact.Request{
		Upload:      state.upload,
		Result:      state.result,
		Institution: state.institution,
	})
	if err != nil {
		return fmt.Errorf("artifact generation: %w", err)
	}

	for i := range artifacts {
		artifacts[i].ResultID = state.result.ID
		if err := p.store.CreateArtifact(ctx, &artifacts[i]); err != nil {
			return fmt.Errorf("persisting artifact %s: %w", artifacts[i].Title, err)
		}
	}
	state.artifacts = artifacts

	now := time.Now().UTC()
	if err := p.setUploadStatus(ctx, state.upload.ID, types.UploadStatusComplete, &now); err != nil {
		return fmt.Errorf("marking upload complete: %w", err)
	}
	return nil
}

func (p *defaultProcessor) setUploadStatus(ctx context.Context, uploadID string, status types.UploadStatus, processedAt *time.Time) error {
	return p.store.UpdateUpload(ctx, uploadID, store.UploadUpdate{
		Status:      &status,
		ProcessedAt: processedAt,
	})
}

// publish emits events on a best-effort basis; streaming problems are
// logged, never allowed to fail the run.
func (p *defaultProcessor) publish(ctx context.Context, ev stream.Event) {
	if p.streamer == nil {
		return
	}
	if err := p.streamer.Publish(ctx, []stream.Event{ev}); err != nil {
		p.logger.Warn("publishing %s event for upload %s: %v", ev.Type, ev.UploadID, err)
	}
}

func categoryDetail(sr *threat.ScanResult) map[string]string {
	sum := sr.Summary()
	if len(sum) == 0 {
		return nil
	}
	detail := make(map[string]string, len(sum))
	for cat, n := range sum {
		detail[string(cat)] = strconv.Itoa(n)
	}
	return detail
}

var _ Processor = (*defaultProcessor)(nil)
