package pipeline_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/umputun/eventscope/pkg/domain"
	"github.com/umputun/eventscope/pkg/pipeline"
	"github.com/umputun/eventscope/pkg/pipeline/mocks"
	"github.com/umputun/eventscope/pkg/processor"
)

func textClassifier() *mocks.ClassifierMock {
	return &mocks.ClassifierMock{
		ClassifyFunc: func(_ context.Context, rawInput string) domain.ClassifiedInput {
			return domain.ClassifiedInput{
				RawInput: rawInput, Type: domain.InputText,
				Confidence: 0.9, Method: domain.MethodTier1Regex,
			}
		},
	}
}

func goodProcessor() *mocks.ProcessorMock {
	return &mocks.ProcessorMock{
		ProcessFunc: func(_ context.Context, req processor.Request) (processor.Result, error) {
			return processor.Result{
				Candidate: domain.EventCandidate{
					Title: "Jazz Night Live", Date: "2025-06-24 20:00",
					Location: "Blue Note", Description: "an evening of jazz",
					ParsingConfidence: 0.9,
					UserID:            req.UserID,
				},
				ValidationScore: 1.0,
				Method:          processor.MethodLLM,
				Status:          processor.StatusCompleted,
			}, nil
		},
	}
}

func savingPersister() *mocks.PersisterMock {
	return &mocks.PersisterMock{
		SaveFunc: func(_ context.Context, _ domain.EventCandidate, exp domain.Expansion) (domain.SaveResult, error) {
			ids := make([]string, 0, len(exp.Sessions))
			for i := range exp.Sessions {
				ids = append(ids, fmt.Sprintf("page-%d", i+1))
			}
			return domain.SaveResult{
				PageID: ids[0], AllPageIDs: ids,
				TotalSessions: len(exp.Sessions), CreatedSessions: len(exp.Sessions),
				SeriesID: exp.SeriesID, Title: exp.DisplayTitle,
			}, nil
		},
	}
}

func TestPipeline_Run_HappyPath(t *testing.T) {
	classifier := textClassifier()
	proc := goodProcessor()
	persister := savingPersister()
	recorder := &mocks.RecorderMock{
		RecordFunc: func(_ context.Context, _ pipeline.AuditRun) error { return nil },
	}

	p := pipeline.New(classifier, proc, nil, nil, persister, recorder)
	outcome := p.Run(t.Context(), pipeline.Input{
		Raw: "jazz night june 24 at blue note", UserID: "u1", ChatID: 100, Source: "telegram",
	})

	assert.Equal(t, pipeline.StatusCompleted, outcome.Status)
	assert.NotEmpty(t, outcome.RunID)
	assert.False(t, outcome.Decision.ConfirmationRequired)
	assert.Equal(t, "page-1", outcome.Save.PageID)
	require.Len(t, outcome.Expansion.Sessions, 1)

	assert.Len(t, classifier.ClassifyCalls(), 1)
	assert.Len(t, proc.ProcessCalls(), 1)
	assert.Len(t, persister.SaveCalls(), 1)

	require.Len(t, recorder.RecordCalls(), 1)
	run := recorder.RecordCalls()[0].Run
	assert.Equal(t, outcome.RunID, run.RunID)
	assert.Equal(t, "completed", run.Status)
	assert.Equal(t, "Jazz Night Live", run.EventTitle)
	assert.Equal(t, 1, run.Sessions)
}

func TestPipeline_Run_MultiDateGates(t *testing.T) {
	proc := &mocks.ProcessorMock{
		ProcessFunc: func(_ context.Context, _ processor.Request) (processor.Result, error) {
			return processor.Result{
				Candidate: domain.EventCandidate{
					Title: "Workshop Series", Date: "2025-07-01 10:00, 2025-07-02 10:00",
					Location: "Hall", Description: "two mornings",
					ParsingConfidence: 0.95,
				},
				ValidationScore: 1.0,
				Method:          processor.MethodLLM,
			}, nil
		},
	}
	persister := savingPersister()

	p := pipeline.New(textClassifier(), proc, nil, nil, persister, nil)
	outcome := p.Run(t.Context(), pipeline.Input{Raw: "workshop july 1 and 2", UserID: "u1"})

	assert.Equal(t, pipeline.StatusAwaitingConfirmation, outcome.Status)
	assert.True(t, outcome.Decision.HasReason(domain.ReasonMultipleDates))
	assert.NotEmpty(t, outcome.Decision.Message)
	assert.Empty(t, persister.SaveCalls(), "gated runs never persist")
}

func TestPipeline_Run_UnknownSkipped(t *testing.T) {
	classifier := &mocks.ClassifierMock{
		ClassifyFunc: func(_ context.Context, rawInput string) domain.ClassifiedInput {
			return domain.ClassifiedInput{RawInput: rawInput, Type: domain.InputUnknown}
		},
	}
	proc := goodProcessor()
	persister := savingPersister()

	p := pipeline.New(classifier, proc, nil, nil, persister, nil)
	outcome := p.Run(t.Context(), pipeline.Input{Raw: "???", UserID: "u1"})

	assert.Equal(t, pipeline.StatusSkipped, outcome.Status)
	assert.Empty(t, proc.ProcessCalls(), "skipped inputs never reach a processor")
	assert.Empty(t, persister.SaveCalls())
}

func TestPipeline_Run_ProcessorFailure(t *testing.T) {
	proc := &mocks.ProcessorMock{
		ProcessFunc: func(_ context.Context, _ processor.Request) (processor.Result, error) {
			return processor.Result{Status: processor.StatusFailed}, fmt.Errorf("fetch page: connection refused")
		},
	}

	p := pipeline.New(textClassifier(), proc, nil, nil, savingPersister(), nil)
	outcome := p.Run(t.Context(), pipeline.Input{Raw: "https://down.example.com", UserID: "u1"})

	assert.Equal(t, pipeline.StatusFailed, outcome.Status)
	assert.Equal(t, "process", outcome.Stage)
	require.Error(t, outcome.Err)
	assert.Contains(t, outcome.Err.Error(), "connection refused")
}

func TestPipeline_Run_PersistFailure(t *testing.T) {
	persister := &mocks.PersisterMock{
		SaveFunc: func(_ context.Context, _ domain.EventCandidate, _ domain.Expansion) (domain.SaveResult, error) {
			return domain.SaveResult{}, fmt.Errorf("notion status 503")
		},
	}

	p := pipeline.New(textClassifier(), goodProcessor(), nil, nil, persister, nil)
	outcome := p.Run(t.Context(), pipeline.Input{Raw: "jazz night", UserID: "u1"})

	assert.Equal(t, pipeline.StatusFailed, outcome.Status)
	assert.Equal(t, "persist", outcome.Stage)
}

func TestPipeline_Run_ImageShortCircuitsClassifier(t *testing.T) {
	classifier := textClassifier()
	imageProc := &mocks.ProcessorMock{
		ProcessFunc: func(_ context.Context, req processor.Request) (processor.Result, error) {
			assert.Equal(t, domain.InputImage, req.Classified.Type)
			assert.Equal(t, "file-9", req.Classified.ImageFileID)
			return processor.Result{
				Candidate: domain.EventCandidate{
					Title: "Flyer Event Name", Date: "2025-07-04 18:00",
					Location: "Park", Description: "from a flyer",
					ParsingConfidence: 0.9,
				},
				ValidationScore: 1.0,
				OCR:             nil,
			}, nil
		},
	}

	p := pipeline.New(classifier, nil, nil, imageProc, savingPersister(), nil)
	outcome := p.Run(t.Context(), pipeline.Input{ImageFileID: "file-9", UserID: "u1"})

	assert.Equal(t, pipeline.StatusCompleted, outcome.Status)
	assert.Empty(t, classifier.ClassifyCalls(), "photo attachments skip text classification")
	assert.Len(t, imageProc.ProcessCalls(), 1)
}

func TestPipeline_Run_AwaitingUserInput(t *testing.T) {
	imageProc := &mocks.ProcessorMock{
		ProcessFunc: func(_ context.Context, _ processor.Request) (processor.Result, error) {
			return processor.Result{
				RequiresUserInput: true,
				UserMessage:       "The image quality is too poor for automatic text extraction.",
			}, nil
		},
	}
	persister := savingPersister()

	p := pipeline.New(textClassifier(), nil, nil, imageProc, persister, nil)
	outcome := p.Run(t.Context(), pipeline.Input{ImageFileID: "blurry", UserID: "u1"})

	assert.Equal(t, pipeline.StatusAwaitingUserInput, outcome.Status)
	assert.Contains(t, outcome.Result.UserMessage, "too poor")
	assert.Empty(t, persister.SaveCalls())
}

func TestPipeline_Run_MultiDateSaveAfterConfirmation(t *testing.T) {
	persister := savingPersister()
	p := pipeline.New(textClassifier(), goodProcessor(), nil, nil, persister, nil)

	candidate := domain.EventCandidate{
		Title: "Workshop", Date: "2025-07-01 10:00, 2025-07-02 10:00", Location: "Hall",
	}
	expansion, saveResult, err := p.SaveCandidate(t.Context(), candidate, "u1")
	require.NoError(t, err)

	assert.True(t, expansion.IsSeries())
	require.Len(t, expansion.Sessions, 2)
	assert.Equal(t, 2, saveResult.CreatedSessions)

	require.Len(t, persister.SaveCalls(), 1)
	savedExp := persister.SaveCalls()[0].Exp
	assert.Equal(t, "Workshop (Session 1 of 2)", savedExp.Sessions[0].Title)
	assert.Equal(t, "2025-07-01T10:00:00", savedExp.Sessions[0].Date)
}

func TestPipeline_GetStats(t *testing.T) {
	p := pipeline.New(textClassifier(), goodProcessor(), nil, nil, savingPersister(), nil)

	p.Run(t.Context(), pipeline.Input{Raw: "jazz night", UserID: "u1"})
	p.Run(t.Context(), pipeline.Input{Raw: "another event", UserID: "u2"})

	stats := p.GetStats()
	assert.Equal(t, 2, stats.Total)
	assert.Equal(t, 2, stats.Completed)
	assert.Equal(t, 0, stats.Failed)
}

func TestPipeline_Run_UniqueRunIDs(t *testing.T) {
	p := pipeline.New(textClassifier(), goodProcessor(), nil, nil, savingPersister(), nil)

	first := p.Run(t.Context(), pipeline.Input{Raw: "a", UserID: "u1"})
	second := p.Run(t.Context(), pipeline.Input{Raw: "b", UserID: "u1"})
	assert.NotEqual(t, first.RunID, second.RunID)
}
