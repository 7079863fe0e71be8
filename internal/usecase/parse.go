// Package usecase contains the two pipeline stages and the orchestrator that
// composes them.
package usecase

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gabriel-vasile/mimetype"

	"github.com/ept-cri/cv-scoring-service/internal/adapter/observability"
	"github.com/ept-cri/cv-scoring-service/internal/domain"
)

const resumeSchemaName = "resume_data"

// ParseService is the extraction stage: it persists the uploaded document and
// delegates structure extraction to the provider's annotation capability.
type ParseService struct {
	Provider domain.Provider
	Store    domain.FileStore
}

// NewParseService constructs a ParseService with its dependencies.
func NewParseService(p domain.Provider, st domain.FileStore) ParseService {
	return ParseService{Provider: p, Store: st}
}

// Healthy reports whether the provider-client handle was constructed.
func (s ParseService) Healthy() bool {
	return s.Provider != nil && s.Provider.Healthy()
}

// Parse turns a base64 document into a validated ResumeData record, or a
// typed failure. Elapsed time covers the save, the provider round trip and the
// local decode, on both paths. The stage never lets an error escape its
// boundary.
func (s ParseService) Parse(ctx domain.Context, applicationID int64, cvBase64, filename string) domain.ParseResult {
	start := time.Now()
	fail := func(msg string) domain.ParseResult {
		elapsed := time.Since(start).Seconds()
		observability.ObserveStage("parse", false, elapsed)
		slog.Error("cv parsing failed", slog.Int64("application_id", applicationID), slog.String("error", msg))
		return domain.ParseResult{Success: false, ApplicationID: applicationID, ErrorMessage: msg, ProcessingTime: elapsed}
	}

	raw, err := base64.StdEncoding.DecodeString(cvBase64)
	if err != nil {
		return fail(fmt.Sprintf("invalid base64 document: %v", err))
	}
	if len(raw) == 0 {
		return fail("empty document")
	}

	if _, err := s.Store.Save(ctx, filename, raw); err != nil {
		return fail(err.Error())
	}

	// The provider is the sole arbiter of document well-formedness; the MIME
	// sniff only picks the media type declared in the data URL.
	mime := mimetype.Detect(raw).String()
	dataURL := "data:" + mime + ";base64," + cvBase64

	annotation, err := s.Provider.AnnotateDocument(ctx, dataURL, resumeSchemaName, domain.ResumeDataSchema())
	if err != nil {
		return fail(fmt.Sprintf("document annotation: %v", err))
	}
	if annotation == "" {
		return fail("provider returned no annotation")
	}

	var parsed domain.ResumeData
	if err := json.Unmarshal([]byte(annotation), &parsed); err != nil {
		return fail(fmt.Sprintf("invalid annotation JSON: %v", err))
	}
	parsed.EnsureDefaults()

	elapsed := time.Since(start).Seconds()
	observability.ObserveStage("parse", true, elapsed)
	slog.Info("cv parsed",
		slog.Int64("application_id", applicationID),
		slog.String("filename", filename),
		slog.Int("competences", len(parsed.Competences)),
		slog.Int("experiences", len(parsed.WorkExperience)),
		slog.Float64("processing_time", elapsed))
	return domain.ParseResult{Success: true, ApplicationID: applicationID, ParsedData: &parsed, ProcessingTime: elapsed}
}
