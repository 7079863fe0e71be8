// Package domain holds the value records, stage results and ports of the
// CV scoring pipeline. Records are immutable once constructed; each stage
// produces a new record and never mutates its inputs.
package domain

import (
	"context"
	"errors"
	"time"
)

// Error taxonomy (sentinels)
var (
	ErrInvalidArgument     = errors.New("invalid argument")
	ErrExtraction          = errors.New("extraction failed")
	ErrScoringDecode       = errors.New("scoring decode failed")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrInternal            = errors.New("internal error")
)

// Recommendation values the scoring provider is allowed to return.
const (
	RecommendationExcellent = "EXCELLENT"
	RecommendationBon       = "BON"
	RecommendationMoyen     = "MOYEN"
	RecommendationFaible    = "FAIBLE"
)

// Education is one academic entry extracted from a CV.
type Education struct {
	Degree       string `json:"degree"`
	Institution  string `json:"institution"`
	Year         string `json:"year,omitempty"`
	FieldOfStudy string `json:"field_of_study,omitempty"`
}

// WorkExperience is one professional entry extracted from a CV.
type WorkExperience struct {
	Position     string   `json:"position"`
	Company      string   `json:"company"`
	StartDate    string   `json:"start_date,omitempty"`
	EndDate      string   `json:"end_date,omitempty"`
	Description  string   `json:"description,omitempty"`
	Achievements []string `json:"achievements"`
}

// Project is one project entry extracted from a CV.
type Project struct {
	Name         string   `json:"name"`
	Description  string   `json:"description,omitempty"`
	Technologies []string `json:"technologies"`
	Role         string   `json:"role,omitempty"`
	URL          string   `json:"url,omitempty"`
}

// Language is one spoken-language entry extracted from a CV.
type Language struct {
	Language string `json:"language"`
	Level    string `json:"level,omitempty"`
}

// ResumeData is the structured extraction of a candidate document.
// Invariant: list fields are empty slices, never nil, so prompt construction
// downstream never branches on missing collections. EnsureDefaults enforces it
// after decoding.
type ResumeData struct {
	Education      []Education      `json:"education"`
	WorkExperience []WorkExperience `json:"work_experience"`
	Projects       []Project        `json:"projects"`
	Competences    []string         `json:"competences"`
	Tools          []string         `json:"tools"`
	SoftSkills     []string         `json:"soft_skills"`
	Languages      []Language       `json:"languages"`
	Certifications []string         `json:"certifications"`
	Summary        string           `json:"summary,omitempty"`
}

// EnsureDefaults replaces nil collections with empty ones.
func (r *ResumeData) EnsureDefaults() {
	if r.Education == nil {
		r.Education = []Education{}
	}
	if r.WorkExperience == nil {
		r.WorkExperience = []WorkExperience{}
	}
	for i := range r.WorkExperience {
		if r.WorkExperience[i].Achievements == nil {
			r.WorkExperience[i].Achievements = []string{}
		}
	}
	if r.Projects == nil {
		r.Projects = []Project{}
	}
	for i := range r.Projects {
		if r.Projects[i].Technologies == nil {
			r.Projects[i].Technologies = []string{}
		}
	}
	if r.Competences == nil {
		r.Competences = []string{}
	}
	if r.Tools == nil {
		r.Tools = []string{}
	}
	if r.SoftSkills == nil {
		r.SoftSkills = []string{}
	}
	if r.Languages == nil {
		r.Languages = []Language{}
	}
	if r.Certifications == nil {
		r.Certifications = []string{}
	}
}

// JobOffer describes one job posting a CV is scored against.
// All fields except the skill list are required at construction.
type JobOffer struct {
	JobID          int64    `json:"job_id" validate:"required"`
	JobTitle       string   `json:"job_title" validate:"required"`
	JobType        string   `json:"job_type" validate:"required"`
	ContractType   string   `json:"contract_type" validate:"required"`
	Description    string   `json:"description" validate:"required"`
	RequiredSkills []string `json:"required_skills"`
	EducationLevel string   `json:"education_level" validate:"required"`
	MinExperience  int      `json:"min_experience" validate:"gte=0"`
}

// ScoringResult is the output of the scoring stage. Sub-scores live in
// [0,100]; recommendation is one of the closed enumeration. The band
// correlation (EXCELLENT 85-100, BON 70-84, MOYEN 50-69, FAIBLE 0-49) is a
// prompt-level contract with the provider, not a structural invariant.
type ScoringResult struct {
	ScoreGlobal         float64  `json:"score_global" validate:"gte=0,lte=100"`
	MatchingCompetences float64  `json:"matching_competences" validate:"gte=0,lte=100"`
	MatchingExperience  float64  `json:"matching_experience" validate:"gte=0,lte=100"`
	MatchingDiploma     float64  `json:"matching_diploma" validate:"gte=0,lte=100"`
	Justification       string   `json:"justification"`
	Recommendation      string   `json:"recommendation" validate:"oneof=EXCELLENT BON MOYEN FAIBLE"`
	Strengths           []string `json:"strengths"`
	Weaknesses          []string `json:"weaknesses"`
	MissingSkills       []string `json:"missing_skills"`
}

// ParseResult is the tagged outcome of the extraction stage. Exactly one of
// ParsedData/ErrorMessage is populated, governed by Success.
type ParseResult struct {
	Success        bool        `json:"success"`
	ApplicationID  int64       `json:"application_id"`
	ParsedData     *ResumeData `json:"parsed_data,omitempty"`
	ErrorMessage   string      `json:"error_message,omitempty"`
	ProcessingTime float64     `json:"processing_time"`
}

// ScoreResult is the tagged outcome of the scoring stage.
type ScoreResult struct {
	Success        bool           `json:"success"`
	ApplicationID  int64          `json:"application_id"`
	ScoringResult  *ScoringResult `json:"scoring_result,omitempty"`
	ErrorMessage   string         `json:"error_message,omitempty"`
	ProcessingTime float64        `json:"processing_time"`
}

// ProcessResult is the orchestrator's final output. It is constructed exactly
// once per request, returned synchronously, and optionally delivered once,
// best-effort, to a caller-supplied callback URL.
type ProcessResult struct {
	Success             bool           `json:"success"`
	ApplicationID       int64          `json:"application_id"`
	ScoringResult       *ScoringResult `json:"scoring_result,omitempty"`
	ErrorMessage        string         `json:"error_message,omitempty"`
	TotalProcessingTime float64        `json:"total_processing_time"`
}

// Provider (port) is the external inference collaborator. AnnotateDocument
// submits a document constrained to a target schema and returns the raw
// annotation JSON; ChatJSON submits a prompt with a forced structured-output
// contract and returns the first message content. Healthy only asserts the
// client handle was constructed; it is not a connectivity check.
type Provider interface {
	AnnotateDocument(ctx Context, documentDataURL, schemaName string, schema map[string]any) (string, error)
	ChatJSON(ctx Context, systemPrompt, userPrompt, schemaName string, schema map[string]any) (string, error)
	Healthy() bool
}

// FileStore (port) persists uploaded CV bytes as a side effect of extraction.
// Save returns the path actually written; implementations must not let two
// concurrent requests with the same filename overwrite each other.
type FileStore interface {
	Save(ctx Context, filename string, data []byte) (string, error)
}

// Dispatcher (port) delivers a ProcessResult to a callback URL. At most one
// attempt, bounded timeout, failure logged and never surfaced.
type Dispatcher interface {
	Deliver(ctx Context, url string, result ProcessResult)
}

// Clock is injectable time for elapsed measurements in tests.
type Clock func() time.Time

// Context aliases context.Context so usecases read in domain vocabulary.
type Context = context.Context
