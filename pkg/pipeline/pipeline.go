// Package pipeline orchestrates one input's journey: classification,
// type-specific processing, the confirmation gate, series expansion, and
// persistence. Each run is tagged with a unique id and every stage is timed.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-pkgz/lgr"
	"github.com/google/uuid"

	"github.com/umputun/eventscope/pkg/domain"
	"github.com/umputun/eventscope/pkg/gate"
	"github.com/umputun/eventscope/pkg/processor"
	"github.com/umputun/eventscope/pkg/series"
)

//go:generate moq -out mocks/classifier.go -pkg mocks -skip-ensure -fmt goimports . Classifier
//go:generate moq -out mocks/processor.go -pkg mocks -skip-ensure -fmt goimports . Processor
//go:generate moq -out mocks/persister.go -pkg mocks -skip-ensure -fmt goimports . Persister
//go:generate moq -out mocks/recorder.go -pkg mocks -skip-ensure -fmt goimports . Recorder

// run status values
const (
	StatusCompleted            = "completed"
	StatusAwaitingConfirmation = "awaiting_confirmation"
	StatusAwaitingUserInput    = "awaiting_user_input"
	StatusSkipped              = "skipped"
	StatusFailed               = "failed"
)

// stage names used in failure reporting and timings
const (
	StageClassify = "classify"
	StageProcess  = "process"
	StageGate     = "gate"
	StageExpand   = "expand"
	StagePersist  = "persist"
)

// Classifier types raw input; satisfied by classify.Classifier
type Classifier interface {
	Classify(ctx context.Context, rawInput string) domain.ClassifiedInput
}

// Processor extracts an event candidate from one kind of classified input;
// satisfied by the processor package implementations
type Processor interface {
	Process(ctx context.Context, req processor.Request) (processor.Result, error)
}

// Persister saves an expansion; satisfied by notion.Client
type Persister interface {
	Save(ctx context.Context, candidate domain.EventCandidate, exp domain.Expansion) (domain.SaveResult, error)
}

// Recorder writes run outcomes to the audit log; satisfied by db.Audit
type Recorder interface {
	Record(ctx context.Context, run AuditRun) error
}

// AuditRun is the audit row the pipeline emits per run
type AuditRun struct {
	RunID      string
	UserID     string
	InputType  string
	Method     string
	Status     string
	Stage      string
	EventTitle string
	Confidence float64
	Gated      bool
	Sessions   int
	Error      string
	ElapsedMs  int64
}

// Input is one raw submission from a transport
type Input struct {
	Raw         string
	ImageFileID string
	ImageData   []byte
	UserID      string
	ChatID      int64
	Source      string
}

// Outcome is the full result of one pipeline run
type Outcome struct {
	RunID      string
	Status     string
	Stage      string // last stage reached, set on failure
	Classified domain.ClassifiedInput
	Result     processor.Result
	Decision   domain.GateDecision
	Expansion  domain.Expansion
	Save       domain.SaveResult
	Timings    map[string]time.Duration
	Elapsed    time.Duration
	Err        error
}

// Stats counts pipeline outcomes since start
type Stats struct {
	Total         int
	Completed     int
	Gated         int
	AwaitingInput int
	Skipped       int
	Failed        int
}

// Pipeline wires the stages together
type Pipeline struct {
	classifier Classifier
	processors map[domain.InputType]Processor
	persister  Persister
	recorder   Recorder // optional, nil disables the audit log
	now        func() time.Time

	mu    sync.Mutex
	stats Stats
}

// New creates a pipeline. Text and email inputs share the text processor.
func New(classifier Classifier, text, url, image Processor, persister Persister, recorder Recorder) *Pipeline {
	return &Pipeline{
		classifier: classifier,
		processors: map[domain.InputType]Processor{
			domain.InputText:  text,
			domain.InputEmail: text,
			domain.InputURL:   url,
			domain.InputImage: image,
		},
		persister: persister,
		recorder:  recorder,
		now:       time.Now,
	}
}

// Run takes one input through all stages. The returned outcome carries the
// error for failed runs as well, callers render user-facing messages from it.
func (p *Pipeline) Run(ctx context.Context, input Input) Outcome {
	started := p.now()
	outcome := Outcome{
		RunID:   uuid.New().String(),
		Timings: map[string]time.Duration{},
	}
	lgr.Printf("[INFO] pipeline run %s started, user %s", outcome.RunID, input.UserID)

	// classify
	stageStart := p.now()
	outcome.Classified = p.classify(ctx, input)
	outcome.Timings[StageClassify] = p.now().Sub(stageStart)
	lgr.Printf("[DEBUG] run %s classified as %s (%.2f, %s)",
		outcome.RunID, outcome.Classified.Type, outcome.Classified.Confidence, outcome.Classified.Method)

	// unhandleable input types never reach a processor
	if outcome.Classified.Type == domain.InputUnknown || outcome.Classified.Type == domain.InputError {
		outcome.Status = StatusSkipped
		outcome.Elapsed = p.now().Sub(started)
		p.record(ctx, input, &outcome)
		return outcome
	}

	proc, ok := p.processors[outcome.Classified.Type]
	if !ok || proc == nil {
		return p.fail(ctx, input, &outcome, StageProcess, started,
			fmt.Errorf("no processor for input type %s", outcome.Classified.Type))
	}

	// process
	stageStart = p.now()
	result, err := proc.Process(ctx, processor.Request{
		Classified: outcome.Classified,
		Source:     input.Source,
		UserID:     input.UserID,
		ChatID:     input.ChatID,
	})
	outcome.Timings[StageProcess] = p.now().Sub(stageStart)
	if err != nil {
		return p.fail(ctx, input, &outcome, StageProcess, started, err)
	}
	outcome.Result = result

	if result.RequiresUserInput {
		outcome.Status = StatusAwaitingUserInput
		outcome.Elapsed = p.now().Sub(started)
		p.record(ctx, input, &outcome)
		return outcome
	}

	// gate
	stageStart = p.now()
	outcome.Decision = gate.Decide(result.Candidate, result.ValidationScore, result.OCR)
	outcome.Timings[StageGate] = p.now().Sub(stageStart)

	if outcome.Decision.ConfirmationRequired {
		outcome.Status = StatusAwaitingConfirmation
		outcome.Elapsed = p.now().Sub(started)
		lgr.Printf("[INFO] run %s gated: %v", outcome.RunID, outcome.Decision.Reasons)
		p.record(ctx, input, &outcome)
		return outcome
	}

	// expand and persist
	expansion, saveResult, err := p.persist(ctx, result.Candidate, input.UserID, &outcome)
	if err != nil {
		return p.fail(ctx, input, &outcome, StagePersist, started, err)
	}
	outcome.Expansion = expansion
	outcome.Save = saveResult
	outcome.Status = StatusCompleted
	outcome.Elapsed = p.now().Sub(started)
	lgr.Printf("[INFO] pipeline run %s completed in %v, %d session(s) saved",
		outcome.RunID, outcome.Elapsed, saveResult.CreatedSessions)
	p.record(ctx, input, &outcome)
	return outcome
}

// SaveCandidate expands and persists a candidate outside a full run, used
// when the user confirms a previously gated extraction
func (p *Pipeline) SaveCandidate(ctx context.Context, candidate domain.EventCandidate, userID string) (domain.Expansion, domain.SaveResult, error) {
	expansion := series.Expand(candidate, userID, p.now())
	saveResult, err := p.persister.Save(ctx, candidate, expansion)
	if err != nil {
		return expansion, domain.SaveResult{}, fmt.Errorf("persist confirmed event: %w", err)
	}
	return expansion, saveResult, nil
}

// GetStats returns a snapshot of outcome counters
func (p *Pipeline) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// classify wraps the classifier, short-circuiting photo attachments which
// carry no classifiable text
func (p *Pipeline) classify(ctx context.Context, input Input) domain.ClassifiedInput {
	if input.ImageFileID != "" || len(input.ImageData) > 0 {
		return domain.ClassifiedInput{
			RawInput:    input.Raw,
			Type:        domain.InputImage,
			Confidence:  1.0,
			Method:      domain.MethodTier1Regex,
			Reasoning:   "photo attachment",
			ImageFileID: input.ImageFileID,
			ImageData:   input.ImageData,
		}
	}
	return p.classifier.Classify(ctx, input.Raw)
}

func (p *Pipeline) persist(ctx context.Context, candidate domain.EventCandidate, userID string, outcome *Outcome) (domain.Expansion, domain.SaveResult, error) {
	stageStart := p.now()
	expansion := series.Expand(candidate, userID, p.now())
	outcome.Timings[StageExpand] = p.now().Sub(stageStart)

	stageStart = p.now()
	saveResult, err := p.persister.Save(ctx, candidate, expansion)
	outcome.Timings[StagePersist] = p.now().Sub(stageStart)
	if err != nil {
		return expansion, domain.SaveResult{}, fmt.Errorf("persist event: %w", err)
	}
	return expansion, saveResult, nil
}

func (p *Pipeline) fail(ctx context.Context, input Input, outcome *Outcome, stage string, started time.Time, err error) Outcome {
	outcome.Status = StatusFailed
	outcome.Stage = stage
	outcome.Err = err
	outcome.Elapsed = p.now().Sub(started)
	lgr.Printf("[WARN] pipeline run %s failed at %s: %v", outcome.RunID, stage, err)
	p.record(ctx, input, outcome)
	return *outcome
}

// record updates counters and writes the audit row
func (p *Pipeline) record(ctx context.Context, input Input, outcome *Outcome) {
	p.mu.Lock()
	p.stats.Total++
	switch outcome.Status {
	case StatusCompleted:
		p.stats.Completed++
	case StatusAwaitingConfirmation:
		p.stats.Gated++
	case StatusAwaitingUserInput:
		p.stats.AwaitingInput++
	case StatusSkipped:
		p.stats.Skipped++
	case StatusFailed:
		p.stats.Failed++
	}
	p.mu.Unlock()

	if p.recorder == nil {
		return
	}

	run := AuditRun{
		RunID:      outcome.RunID,
		UserID:     input.UserID,
		InputType:  string(outcome.Classified.Type),
		Method:     outcome.Result.Method,
		Status:     outcome.Status,
		Stage:      outcome.Stage,
		EventTitle: outcome.Result.Candidate.Title,
		Confidence: outcome.Result.Candidate.ParsingConfidence,
		Gated:      outcome.Decision.ConfirmationRequired,
		Sessions:   outcome.Save.CreatedSessions,
		ElapsedMs:  outcome.Elapsed.Milliseconds(),
	}
	if outcome.Err != nil {
		run.Error = outcome.Err.Error()
	}
	if err := p.recorder.Record(ctx, run); err != nil {
		lgr.Printf("[WARN] failed to record run %s: %v", outcome.RunID, err)
	}
}
