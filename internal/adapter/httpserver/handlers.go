package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/ept-cri/cv-scoring-service/internal/config"
	"github.com/ept-cri/cv-scoring-service/internal/domain"
	"github.com/ept-cri/cv-scoring-service/internal/usecase"
)

// Version is reported by the health and root endpoints.
const Version = "1.0.0"

// Server aggregates handler dependencies.
type Server struct {
	Cfg     config.Config
	Parse   usecase.ParseService
	Score   usecase.ScoreService
	Process usecase.ProcessService
}

// NewServer constructs an HTTP server with the pipeline services wired.
func NewServer(cfg config.Config, parse usecase.ParseService, score usecase.ScoreService, process usecase.ProcessService) *Server {
	return &Server{Cfg: cfg, Parse: parse, Score: score, Process: process}
}

var (
	vldOnce sync.Once
	vld     *validator.Validate
)

func getValidator() *validator.Validate {
	vldOnce.Do(func() { vld = validator.New() })
	return vld
}

type parseCVRequest struct {
	ApplicationID int64  `json:"application_id" validate:"required"`
	CVBase64      string `json:"cv_base64" validate:"required"`
	Filename      string `json:"filename" validate:"required"`
}

type scoreCVRequest struct {
	ApplicationID int64             `json:"application_id" validate:"required"`
	ParsedCVData  domain.ResumeData `json:"parsed_cv_data"`
	JobOffer      domain.JobOffer   `json:"job_offer"`
}

type processCVRequest struct {
	ApplicationID int64           `json:"application_id" validate:"required"`
	CVBase64      string          `json:"cv_base64" validate:"required"`
	Filename      string          `json:"filename" validate:"required"`
	JobOffer      domain.JobOffer `json:"job_offer"`
	CallbackURL   string          `json:"callback_url" validate:"omitempty,url"`
}

// decodeAndValidate decodes a JSON body into req and runs struct validation,
// including the nested JobOffer tags. Validation failures come back wrapped
// in ErrInvalidArgument with a field→tag detail map.
func decodeAndValidate(r *http.Request, req any) (map[string]string, error) {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return nil, fmt.Errorf("%w: invalid json", domain.ErrInvalidArgument)
	}
	if err := getValidator().Struct(req); err != nil {
		verrs := map[string]string{}
		if ve, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range ve {
				verrs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		}
		return verrs, fmt.Errorf("%w: validation failed", domain.ErrInvalidArgument)
	}
	return nil, nil
}

// maxBodyBytes caps request bodies; base64 inflates documents by ~4/3.
func (s *Server) maxBodyBytes() int64 {
	return s.Cfg.MaxUploadMB * 1024 * 1024 * 2
}

// ParseCVHandler runs the extraction stage alone. Stage failures are reported
// inside the result payload with a 200 status; only request-shape errors map
// to 4xx.
func (s *Server) ParseCVHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
		var req parseCVRequest
		if details, err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res := s.Parse.Parse(r.Context(), req.ApplicationID, req.CVBase64, req.Filename)
		writeJSON(w, http.StatusOK, res)
	}
}

// ScoreCVHandler runs the scoring stage alone on already-parsed CV data.
func (s *Server) ScoreCVHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
		var req scoreCVRequest
		if details, err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		req.ParsedCVData.EnsureDefaults()
		res := s.Score.Score(r.Context(), req.ApplicationID, req.ParsedCVData, req.JobOffer)
		writeJSON(w, http.StatusOK, res)
	}
}

// ProcessCVHandler runs the full parse → score pipeline and responds
// synchronously. The optional callback delivery is scheduled by the
// orchestrator and never delays this response.
func (s *Server) ProcessCVHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodyBytes())
		var req processCVRequest
		if details, err := decodeAndValidate(r, &req); err != nil {
			writeError(w, r, err, details)
			return
		}
		res := s.Process.Process(r.Context(), req.ApplicationID, req.CVBase64, req.Filename, req.JobOffer, req.CallbackURL)
		writeJSON(w, http.StatusOK, res)
	}
}

type healthResponse struct {
	Status           string    `json:"status"`
	Timestamp        time.Time `json:"timestamp"`
	Version          string    `json:"version"`
	MistralAPIStatus string    `json:"mistral_api_status"`
}

// HealthHandler reports the per-capability liveness probes. "healthy" only
// when both stages hold a constructed provider handle; this is not a
// connectivity check.
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		ocrStatus := "ERROR"
		if s.Parse.Healthy() {
			ocrStatus = "OK"
		}
		chatStatus := "ERROR"
		if s.Score.Healthy() {
			chatStatus = "OK"
		}
		status := "degraded"
		if ocrStatus == "OK" && chatStatus == "OK" {
			status = "healthy"
		}
		writeJSON(w, http.StatusOK, healthResponse{
			Status:           status,
			Timestamp:        time.Now().UTC(),
			Version:          Version,
			MistralAPIStatus: fmt.Sprintf("OCR: %s, Chat: %s", ocrStatus, chatStatus),
		})
	}
}

// RootHandler describes the service and its endpoints.
func (s *Server) RootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"service": "cv-scoring-service",
			"version": Version,
			"status":  "running",
			"endpoints": map[string]string{
				"health":  "/health",
				"parse":   "/api/ia/parse-cv",
				"score":   "/api/ia/score-cv",
				"process": "/api/ia/process-cv",
			},
		})
	}
}
