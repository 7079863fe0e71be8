package usecase

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ept-cri/cv-scoring-service/internal/adapter/ai/tokencount"
	"github.com/ept-cri/cv-scoring-service/internal/adapter/observability"
	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

const scoringSchemaName = "scoring_result"

// ScoreService is the relevance scoring stage: it renders the evaluation
// prompt and delegates scoring to the provider's chat capability with a
// forced structured-output contract.
type ScoreService struct {
	Provider  domain.Provider
	ChatModel string
}

// NewScoreService constructs a ScoreService with its dependencies.
func NewScoreService(p domain.Provider, chatModel string) ScoreService {
	return ScoreService{Provider: p, ChatModel: chatModel}
}

// Healthy reports whether the provider-client handle was constructed.
func (s ScoreService) Healthy() bool {
	return s.Provider != nil && s.Provider.Healthy()
}

// Score evaluates a parsed CV against a job offer and returns a typed
// ScoreResult. Decoding is lenient on missing keys (they default to zero or
// empty) and strict on the recommendation enumeration and the [0,100]
// sub-score bounds.
func (s ScoreService) Score(ctx domain.Context, applicationID int64, cv domain.ResumeData, offer domain.JobOffer) domain.ScoreResult {
	start := time.Now()
	fail := func(msg string) domain.ScoreResult {
		elapsed := time.Since(start).Seconds()
		observability.ObserveStage("score", false, elapsed)
		slog.Error("cv scoring failed", slog.Int64("application_id", applicationID), slog.String("error", msg))
		return domain.ScoreResult{Success: false, ApplicationID: applicationID, ErrorMessage: msg, ProcessingTime: elapsed}
	}

	prompt := buildScoringPrompt(cv, offer)
	promptTokens := tokencount.CountChatTokensDefault(scoringSystemPrompt, prompt, s.ChatModel)
	slog.Info("scoring cv",
		slog.Int64("application_id", applicationID),
		slog.String("job_title", offer.JobTitle),
		slog.Int("prompt_tokens", promptTokens))

	content, err := s.Provider.ChatJSON(ctx, scoringSystemPrompt, prompt, scoringSchemaName, domain.ScoringResultSchema())
	if err != nil {
		return fail(fmt.Sprintf("chat completion: %v", err))
	}

	result, err := decodeScoring(content)
	if err != nil {
		return fail(err.Error())
	}

	elapsed := time.Since(start).Seconds()
	observability.ObserveStage("score", true, elapsed)
	observability.ObserveScoring(result.ScoreGlobal, result.Recommendation)
	slog.Info("cv scored",
		slog.Int64("application_id", applicationID),
		slog.Float64("score_global", result.ScoreGlobal),
		slog.String("recommendation", result.Recommendation),
		slog.Float64("processing_time", elapsed))
	return domain.ScoreResult{Success: true, ApplicationID: applicationID, ScoringResult: result, ProcessingTime: elapsed}
}

// decodeScoring decodes the provider's completion content into a validated
// ScoringResult. Some models wrap JSON in markdown fences despite the
// structured-output contract; strip them before decoding.
func decodeScoring(content string) (*domain.ScoringResult, error) {
	content = stripCodeFence(content)
	var result domain.ScoringResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("invalid scoring JSON: %v", err)
	}
	if result.Strengths == nil {
		result.Strengths = []string{}
	}
	if result.Weaknesses == nil {
		result.Weaknesses = []string{}
	}
	if result.MissingSkills == nil {
		result.MissingSkills = []string{}
	}
	if err := result.Validate(); err != nil {
		return nil, fmt.Errorf("scoring validation: %v", err)
	}
	return &result, nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
