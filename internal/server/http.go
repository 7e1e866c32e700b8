// Package server exposes the extraction pipeline over HTTP (gin) and gRPC.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/pdf-fields/internal/async"
	"github.com/joseph-ayodele/pdf-fields/internal/common"
	"github.com/joseph-ayodele/pdf-fields/internal/entity"
	"github.com/joseph-ayodele/pdf-fields/internal/export"
	"github.com/joseph-ayodele/pdf-fields/internal/pipeline"
)

// Extractor is the pipeline surface the handlers use.
type Extractor interface {
	Process(ctx context.Context, req pipeline.Request) (pipeline.Report, error)
	Batch(ctx context.Context, reqs []pipeline.Request) []pipeline.Report
}

// JobQueue runs requests in the background.
type JobQueue interface {
	Enqueue(ctx context.Context, req pipeline.Request) (uuid.UUID, error)
	Status(id uuid.UUID) (async.Status, bool)
}

type HTTPConfig struct {
	UploadDir     string // temp dir for uploaded PDFs; os.TempDir() when empty
	MaxUploadSize int64  // /extract-upload body cap in bytes; 32 MiB when zero
}

const maxMultipartMemory = 8 << 20

// Handler serves the HTTP API. Queue is optional; without it the /jobs routes are absent.
type Handler struct {
	cfg    HTTPConfig
	proc   Extractor
	queue  JobQueue
	export *export.Service
	logger *slog.Logger
}

func NewHandler(cfg HTTPConfig, proc Extractor, queue JobQueue, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UploadDir == "" {
		cfg.UploadDir = os.TempDir()
	}
	if cfg.MaxUploadSize <= 0 {
		cfg.MaxUploadSize = 32 << 20
	}
	return &Handler{cfg: cfg, proc: proc, queue: queue, export: export.NewService(logger), logger: logger}
}

// Router wires middleware and routes on a fresh gin engine.
func (h *Handler) Router() *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Recovery(h.logger), RequestLogger(h.logger))
	// parts above this spill to disk; the upload size itself is capped in extractUpload
	r.MaxMultipartMemory = min(h.cfg.MaxUploadSize, maxMultipartMemory)

	r.GET("/health", h.health)
	r.POST("/extract", h.extract)
	r.POST("/extract-upload", h.extractUpload)
	r.POST("/extract-batch", h.extractBatch)
	if h.queue != nil {
		r.POST("/jobs", h.submitJobs)
		r.GET("/jobs/:id", h.jobStatus)
	}
	return r
}

type extractItem struct {
	Label            string        `json:"label"`
	ExtractionSchema entity.Schema `json:"extraction_schema"`
	PDFPath          string        `json:"pdf_path" binding:"required"`
}

func (it extractItem) request() pipeline.Request {
	return pipeline.Request{Path: it.PDFPath, Label: it.Label, Schema: it.ExtractionSchema}
}

type batchRequest struct {
	Items []extractItem `json:"items" binding:"required,min=1,max=100,dive"`
}

type extractResponse struct {
	Label       string                     `json:"label,omitempty"`
	PDFPath     string                     `json:"pdf_path,omitempty"`
	Filename    string                     `json:"filename,omitempty"`
	Result      *entity.ExtractionResult   `json:"result,omitempty"`
	Decisions   map[string]entity.Decision `json:"decisions,omitempty"`
	UsedLLM     bool                       `json:"used_llm"`
	LLMFields   int                        `json:"llm_fields"`
	Cached      bool                       `json:"cached"`
	ElapsedMS   int64                      `json:"elapsed_ms"`
	ContentHash string                     `json:"content_hash,omitempty"`
	Success     bool                       `json:"success"`
	Error       string                     `json:"error,omitempty"`
	Index       *int                       `json:"index,omitempty"`
}

func toResponse(rep pipeline.Report) extractResponse {
	out := extractResponse{
		Label:       rep.Label,
		PDFPath:     rep.Path,
		UsedLLM:     rep.LLMFields > 0,
		LLMFields:   rep.LLMFields,
		Cached:      rep.Cached,
		ElapsedMS:   rep.Elapsed.Milliseconds(),
		ContentHash: rep.ContentHash,
		Success:     rep.Err == nil,
	}
	if rep.Err != nil {
		out.Error = rep.Err.Error()
		return out
	}
	res := rep.Result
	out.Result = &res
	out.Decisions = rep.Decisions
	return out
}

func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC().Format(time.RFC3339)})
}

func (h *Handler) extract(c *gin.Context) {
	var it extractItem
	if err := c.ShouldBindJSON(&it); err != nil {
		h.badRequest(c, err)
		return
	}
	rep, err := h.proc.Process(c.Request.Context(), it.request())
	if err != nil {
		c.JSON(statusFor(err), toResponse(rep))
		return
	}
	c.JSON(http.StatusOK, toResponse(rep))
}

// extractUpload accepts multipart "file" (or "pdf_file"), "extraction_schema" (or
// "schema_json") and "label".
func (h *Handler) extractUpload(c *gin.Context) {
	if c.Request.ContentLength > h.cfg.MaxUploadSize {
		h.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.cfg.MaxUploadSize)
	form, err := c.MultipartForm()
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			h.tooLarge(c)
			return
		}
		h.badRequest(c, fmt.Errorf("invalid multipart form: %w", err))
		return
	}
	fh := firstFile(form, "file", "pdf_file")
	if fh == nil {
		h.badRequest(c, errors.New("file is required"))
		return
	}
	raw := c.PostForm("extraction_schema")
	if raw == "" {
		raw = c.PostForm("schema_json")
	}
	var schema entity.Schema
	if err := json.Unmarshal([]byte(raw), &schema); err != nil {
		h.badRequest(c, fmt.Errorf("invalid extraction_schema: %w", err))
		return
	}

	path, cleanup, err := h.saveUpload(fh)
	if err != nil {
		common.LoggerFromContext(c.Request.Context(), h.logger).Error("http.upload.save_failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not store upload", "request_id": GetRequestID(c)})
		return
	}
	defer cleanup()

	rep, err := h.proc.Process(c.Request.Context(), pipeline.Request{Path: path, Label: c.PostForm("label"), Schema: schema})
	resp := toResponse(rep)
	resp.PDFPath = ""
	resp.Filename = fh.Filename
	if err != nil {
		c.JSON(statusFor(err), resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func firstFile(form *multipart.Form, keys ...string) *multipart.FileHeader {
	for _, k := range keys {
		if fs := form.File[k]; len(fs) > 0 {
			return fs[0]
		}
	}
	return nil
}

func (h *Handler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{
		"error":      fmt.Sprintf("upload exceeds %d bytes", h.cfg.MaxUploadSize),
		"request_id": GetRequestID(c),
	})
}

func (h *Handler) saveUpload(fh *multipart.FileHeader) (string, func(), error) {
	src, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer src.Close()

	dst, err := os.CreateTemp(h.cfg.UploadDir, "upload-*"+filepath.Ext(fh.Filename))
	if err != nil {
		return "", nil, err
	}
	cleanup := func() { _ = os.Remove(dst.Name()) }
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		cleanup()
		return "", nil, err
	}
	if err := dst.Close(); err != nil {
		cleanup()
		return "", nil, err
	}
	return dst.Name(), cleanup, nil
}

// extractBatch runs every item and reports failures per item. With ?format=xlsx the
// reports are returned as a workbook instead.
func (h *Handler) extractBatch(c *gin.Context) {
	var br batchRequest
	if err := c.ShouldBindJSON(&br); err != nil {
		h.badRequest(c, err)
		return
	}
	reqs := make([]pipeline.Request, len(br.Items))
	for i, it := range br.Items {
		reqs[i] = it.request()
	}
	reps := h.proc.Batch(c.Request.Context(), reqs)

	if c.Query("format") == "xlsx" {
		b, err := h.export.ReportsXLSX(reps)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "request_id": GetRequestID(c)})
			return
		}
		c.Header("Content-Disposition", `attachment; filename="results.xlsx"`)
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", b)
		return
	}

	out := make([]extractResponse, len(reps))
	for i, rep := range reps {
		idx := i
		out[i] = toResponse(rep)
		out[i].Index = &idx
	}
	c.JSON(http.StatusOK, gin.H{"results": out})
}

func (h *Handler) submitJobs(c *gin.Context) {
	var br batchRequest
	if err := c.ShouldBindJSON(&br); err != nil {
		h.badRequest(c, err)
		return
	}
	ids := make([]string, 0, len(br.Items))
	for _, it := range br.Items {
		id, err := h.queue.Enqueue(c.Request.Context(), it.request())
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error(), "job_ids": ids})
			return
		}
		ids = append(ids, id.String())
	}
	c.JSON(http.StatusAccepted, gin.H{"job_ids": ids})
}

func (h *Handler) jobStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.badRequest(c, fmt.Errorf("job id must be a UUID"))
		return
	}
	st, ok := h.queue.Status(id)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
		return
	}
	body := gin.H{"id": st.ID.String(), "state": st.State}
	if st.Report != nil {
		body["report"] = toResponse(*st.Report)
	}
	c.JSON(http.StatusOK, body)
}

func (h *Handler) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "request_id": GetRequestID(c)})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, pipeline.ErrSchemaInvalid):
		return http.StatusBadRequest
	case errors.Is(err, os.ErrNotExist):
		return http.StatusNotFound
	case errors.Is(err, pipeline.ErrDocumentRead):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
