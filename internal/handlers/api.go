package handlers

import (
	"context"
	stderrors "errors"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	"sales-insight/internal/config"
	"sales-insight/internal/errors"
	"sales-insight/internal/ingest"
	"sales-insight/internal/observability"
	"sales-insight/internal/services"
)

const uploadField = "file"

type APIHandlers struct {
	analytics *services.Analytics
	dataset   config.DatasetConfig
	logger    *slog.Logger
}

func NewAPIHandlers(analytics *services.Analytics, dataset config.DatasetConfig, logger *slog.Logger) *APIHandlers {
	return &APIHandlers{
		analytics: analytics,
		dataset:   dataset,
		logger:    logger,
	}
}

// HandleAnalyze runs the full pipeline over an uploaded CSV or XLSX file.
func (h *APIHandlers) HandleAnalyze(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	name, file, err := h.upload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer file.Close()

	report, err := h.analytics.AnalyzeUpload(ctx, name, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, report)
}

// HandleProfile loads an upload and reports the detected column roles only.
func (h *APIHandlers) HandleProfile(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	name, file, err := h.upload(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer file.Close()

	table, err := ingest.Load(ctx, name, file)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	errors.WriteSuccess(w, h.analytics.Profile(table))
}

// HandleReport analyses the configured dataset file.
func (h *APIHandlers) HandleReport(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.withTimeout(r.Context())
	defer cancel()

	report, err := h.analytics.AnalyzeFile(ctx, h.dataset.CSVFile)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	headers := map[string]string{
		"Cache-Control": "no-store",
	}

	errors.WriteSuccessWithHeaders(w, report, headers)
}

func (h *APIHandlers) HandleHealth(w http.ResponseWriter, r *http.Request) {

	healthData := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   "1.0.0",
	}

	errors.WriteSuccess(w, healthData)
}

func (h *APIHandlers) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if h.dataset.AnalysisTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, h.dataset.AnalysisTimeout)
}

func (h *APIHandlers) upload(w http.ResponseWriter, r *http.Request) (string, multipart.File, error) {
	if r.ContentLength > h.dataset.MaxUploadBytes {
		return "", nil, errors.TooLarge("upload exceeds the size limit")
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.dataset.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.dataset.MaxUploadBytes); err != nil {
		return "", nil, err
	}
	file, header, err := r.FormFile(uploadField)
	if err != nil {
		return "", nil, errors.BadRequestWrap(err, "multipart field \"file\" is required")
	}
	if _, err := ingest.DetectFormat(header.Filename); err != nil {
		file.Close()
		return "", nil, err
	}
	return header.Filename, file, nil
}

func (h *APIHandlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	errors.WriteError(w, h.logger, classify(err), observability.GetRequestID(r.Context()))
}

// classify maps pipeline and transport failures onto API errors.
func classify(err error) error {
	var appErr *errors.AppError
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &appErr):
		return appErr
	case stderrors.As(err, &tooLarge):
		return errors.TooLarge("upload exceeds the size limit")
	case stderrors.Is(err, ingest.ErrUnsupported):
		return errors.UnsupportedMedia("only .csv, .txt, .xlsx and .xlsm files are accepted")
	case stderrors.Is(err, ingest.ErrEmpty), stderrors.Is(err, services.ErrEmptyDataset):
		return errors.ValidationWrap(err, "dataset has no rows")
	case stderrors.Is(err, context.DeadlineExceeded):
		return errors.TimeoutWrap(err, "analysis timed out")
	case stderrors.Is(err, context.Canceled):
		return errors.ServiceUnavailable("request cancelled")
	case stderrors.Is(err, os.ErrNotExist):
		return errors.NotFound("dataset file not found")
	default:
		return errors.BadRequestWrap(err, "could not read dataset")
	}
}
