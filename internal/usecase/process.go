package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

// ProcessService composes the extraction and scoring stages into the full
// pipeline. It is stateless between requests; any stage failure terminates
// the pipeline and is reported verbatim with a stage prefix.
type ProcessService struct {
	Parser     ParseService
	Scorer     ScoreService
	Dispatcher domain.Dispatcher
}

// NewProcessService constructs a ProcessService with its dependencies.
func NewProcessService(p ParseService, sc ScoreService, d domain.Dispatcher) ProcessService {
	return ProcessService{Parser: p, Scorer: sc, Dispatcher: d}
}

// Process runs parse then score, short-circuiting on first failure, and
// returns the final result synchronously. When callbackURL is present, the
// serialized result is additionally handed to the dispatcher on a detached
// goroutine after the result is constructed; the return never waits on it.
// Panics inside a stage are downgraded to a failed result here; nothing in
// the pipeline may crash the process.
func (s ProcessService) Process(ctx domain.Context, applicationID int64, cvBase64, filename string, offer domain.JobOffer, callbackURL string) (res domain.ProcessResult) {
	start := time.Now()
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("unexpected processing failure", slog.Int64("application_id", applicationID), slog.Any("recover", rec))
			res = domain.ProcessResult{
				Success:             false,
				ApplicationID:       applicationID,
				ErrorMessage:        fmt.Sprintf("unexpected error: %v", rec),
				TotalProcessingTime: time.Since(start).Seconds(),
			}
			s.schedule(ctx, callbackURL, res)
		}
	}()

	slog.Info("processing application", slog.Int64("application_id", applicationID), slog.String("filename", filename), slog.Int64("job_id", offer.JobID))

	parseRes := s.Parser.Parse(ctx, applicationID, cvBase64, filename)
	if !parseRes.Success {
		res = domain.ProcessResult{
			Success:             false,
			ApplicationID:       applicationID,
			ErrorMessage:        "parsing failed: " + parseRes.ErrorMessage,
			TotalProcessingTime: time.Since(start).Seconds(),
		}
		s.schedule(ctx, callbackURL, res)
		return res
	}

	scoreRes := s.Scorer.Score(ctx, applicationID, *parseRes.ParsedData, offer)
	if !scoreRes.Success {
		res = domain.ProcessResult{
			Success:             false,
			ApplicationID:       applicationID,
			ErrorMessage:        "scoring failed: " + scoreRes.ErrorMessage,
			TotalProcessingTime: time.Since(start).Seconds(),
		}
		s.schedule(ctx, callbackURL, res)
		return res
	}

	res = domain.ProcessResult{
		Success:             true,
		ApplicationID:       applicationID,
		ScoringResult:       scoreRes.ScoringResult,
		TotalProcessingTime: time.Since(start).Seconds(),
	}
	slog.Info("processing completed",
		slog.Int64("application_id", applicationID),
		slog.Float64("score_global", scoreRes.ScoringResult.ScoreGlobal),
		slog.Float64("total_processing_time", res.TotalProcessingTime))
	s.schedule(ctx, callbackURL, res)
	return res
}

// schedule hands the result to the dispatcher on a detached goroutine. The
// context is decoupled from the request so the delivery survives the caller's
// response being written; the dispatcher's own client timeout bounds it.
func (s ProcessService) schedule(ctx domain.Context, callbackURL string, res domain.ProcessResult) {
	if callbackURL == "" || s.Dispatcher == nil {
		return
	}
	detached := context.WithoutCancel(ctx)
	go s.Dispatcher.Deliver(detached, callbackURL, res)
}
