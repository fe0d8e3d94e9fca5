package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/go-pkgz/lgr"

	"github.com/umputun/eventscope/pkg/domain"
	"github.com/umputun/eventscope/pkg/extract"
	"github.com/umputun/eventscope/pkg/ocr"
)

// lowConfidenceCap limits the parsing confidence of candidates recovered from
// unreliable OCR text
const lowConfidenceCap = 0.4

// FileResolver downloads image bytes by messenger file id; satisfied by
// telegram.Client
type FileResolver interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// Image processes flyer and screenshot inputs: OCR, quality validation, then
// LLM extraction over the recovered text. Poor OCR degrades to a low-trust
// candidate or a request for manual input instead of a hard failure.
type Image struct {
	engine        ocr.Engine
	parser        Parser
	files         FileResolver
	minConfidence float64
}

// NewImage creates an image processor
func NewImage(engine ocr.Engine, parser Parser, files FileResolver, minConfidence float64) *Image {
	return &Image{engine: engine, parser: parser, files: files, minConfidence: minConfidence}
}

// Process runs OCR over the image and extracts an event candidate from the text
func (p *Image) Process(ctx context.Context, req Request) (Result, error) {
	started := time.Now()

	image := req.Classified.ImageData
	if len(image) == 0 && req.Classified.ImageFileID != "" {
		var err error
		image, err = p.files.Download(ctx, req.Classified.ImageFileID)
		if err != nil {
			return Result{Status: StatusFailed, Elapsed: time.Since(started)},
				fmt.Errorf("download image: %w", err)
		}
	}
	if len(image) == 0 {
		return Result{Status: StatusFailed, Elapsed: time.Since(started)},
			fmt.Errorf("no image data provided")
	}

	// an unreachable OCR engine degrades to a manual-input request like the
	// other image quality failures, never a hard processor error
	ocrResult, ocrErr := p.engine.Run(ctx, image)
	var validation ocr.Validation
	if ocrErr != nil {
		lgr.Printf("[WARN] ocr engine failed: %v", ocrErr)
		validation = ocr.Validation{
			Recommendation: ocr.RecommendError,
			Reason:         fmt.Sprintf("OCR extraction failed: %v", ocrErr),
		}
	} else {
		validation = ocr.Validate(ocrResult, p.minConfidence)
	}
	lgr.Printf("[DEBUG] ocr validation: reliable=%v recommendation=%s", validation.IsReliable, validation.Recommendation)

	result := Result{OCR: &ocrResult, OCRValidation: &validation}

	var candidate domain.EventCandidate
	var method string
	if validation.IsReliable {
		var parseErr error
		candidate, parseErr = p.parser.Parse(ctx, extract.Request{Kind: extract.KindOCR, Text: ocrResult.Text})
		method = MethodLLM
		if parseErr != nil {
			lgr.Printf("[WARN] llm extraction failed for ocr text, falling back to regex: %v", parseErr)
			candidate = extract.FallbackFromText(ocrResult.Text)
			method = MethodFallback
		}
	} else {
		candidate, method = p.degraded(ocrResult, validation, &result)
	}

	candidate.Source = req.Source
	candidate.UserID = req.UserID
	candidate.InputType = req.Classified.Type
	candidate.RawInput = ocrResult.Text

	result.Candidate = candidate
	result.Method = method
	result.ValidationScore = validateCandidate(candidate)
	result.Status = StatusCompleted
	result.Elapsed = time.Since(started)
	return result, nil
}

// degraded handles unreliable OCR: very poor images and textless images ask
// the user for details, anything with some text gets a confidence-capped
// regex extraction
func (p *Image) degraded(ocrResult ocr.Result, validation ocr.Validation, result *Result) (domain.EventCandidate, string) {
	switch validation.Recommendation {
	case ocr.RecommendPoorQuality:
		result.RequiresUserInput = true
		result.UserMessage = "The image quality is too poor for automatic text extraction. " +
			"Could you please provide the event details manually or upload a clearer image?"
		return domain.EventCandidate{Description: "Image quality insufficient for OCR"}, MethodPoorQuality

	case ocr.RecommendNoText:
		result.RequiresUserInput = true
		result.UserMessage = "I couldn't detect any text in this image. " +
			"Could you please provide the event details manually or verify the image contains readable text?"
		return domain.EventCandidate{Description: "No text found in image"}, MethodNoText

	case ocr.RecommendError:
		result.RequiresUserInput = true
		result.UserMessage = "The text recognition service is unavailable right now. " +
			"Could you please provide the event details manually or try the image again later?"
		return domain.EventCandidate{Description: "OCR engine unavailable"}, MethodOCRUnavailable

	default:
		if ocrResult.Text == "" {
			result.RequiresUserInput = true
			return domain.EventCandidate{}, MethodFailed
		}
		candidate := extract.FallbackFromText(ocrResult.Text)
		if candidate.ParsingConfidence > lowConfidenceCap {
			candidate.ParsingConfidence = lowConfidenceCap
		}
		return candidate, MethodLowConfidence
	}
}
