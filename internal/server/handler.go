package server

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	gocache "github.com/patrickmn/go-cache"

	"github.com/ppiankov/clausescan/internal/highlight"
	"github.com/ppiankov/clausescan/internal/logging"
	"github.com/ppiankov/clausescan/internal/model"
	"github.com/ppiankov/clausescan/internal/pipeline"
)

// SessionHeader carries the client's session ID for upload reuse
const SessionHeader = "X-Session-ID"

// Handler serves the analysis API. Results are transient and expire
// after the configured TTL.
type Handler struct {
	analyzer        pipeline.Analyzer
	catalog         model.Catalog
	results         *gocache.Cache
	sessions        *gocache.Cache
	highlightPrefix string
	maxBytes        int64
	logger          logging.Logger
}

// NewHandler creates a handler around an analyzer
func NewHandler(analyzer pipeline.Analyzer, catalog model.Catalog, cfg *model.Config, logger logging.Logger) *Handler {
	ttl := cfg.Server.ResultTTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Handler{
		analyzer:        analyzer,
		catalog:         catalog,
		results:         gocache.New(ttl, ttl/2),
		sessions:        gocache.New(ttl, ttl/2),
		highlightPrefix: cfg.Output.HighlightPrefix,
		maxBytes:        cfg.Extraction.MaxFileBytes,
		logger:          logger.Named("http"),
	}
}

// AnalysisResponse is returned by the analyze endpoint
type AnalysisResponse struct {
	*model.Report
	Cached      bool   `json:"cached"`
	PreviewURL  string `json:"preview_url"`
	DownloadURL string `json:"download_url,omitempty"`
}

// Health reports liveness
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Clauses lists the clauses and keywords being scanned for
func (h *Handler) Clauses(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"clauses": h.catalog})
}

// Analyze accepts a multipart upload in the "file" field
func (h *Handler) Analyze(c *gin.Context) {
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field \"file\" is required"})
		return
	}
	if h.maxBytes > 0 && fh.Size > h.maxBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("file exceeds %d bytes", h.maxBytes)})
		return
	}

	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	data, err := io.ReadAll(f)
	_ = f.Close()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}

	up := pipeline.Upload{Name: filepath.Base(fh.Filename), Data: data}

	var (
		res    *pipeline.Result
		cached bool
	)
	if id := c.GetHeader(SessionHeader); id != "" {
		res, cached, err = h.session(id).Process(c.Request.Context(), up)
	} else {
		res, err = h.analyzer.Analyze(c.Request.Context(), up)
	}
	if err != nil {
		_ = c.Error(err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	h.results.SetDefault(res.ID, res)
	h.logger.Info("upload analyzed",
		logging.String("id", res.ID),
		logging.String("document", up.Name),
		logging.Int("findings", len(res.Findings)),
		logging.Bool("cached", cached))

	resp := AnalysisResponse{
		Report:     res.Report(),
		Cached:     cached,
		PreviewURL: "/api/v1/analyses/" + res.ID + "/preview",
	}
	if len(res.Highlighted) > 0 {
		resp.DownloadURL = "/api/v1/analyses/" + res.ID + "/download"
	}
	c.JSON(http.StatusOK, resp)
}

// GetAnalysis returns a stored report
func (h *Handler) GetAnalysis(c *gin.Context) {
	res, ok := h.result(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, res.Report())
}

// Preview renders the highlighted text as an HTML page
func (h *Handler) Preview(c *gin.Context) {
	res, ok := h.result(c)
	if !ok {
		return
	}

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := highlight.RenderPage(c.Writer, res.Document.Name, res.Document.FullText(), res.Spans); err != nil {
		_ = c.Error(err)
	}
}

// Download returns the highlighted copy under the prefixed original name
func (h *Handler) Download(c *gin.Context) {
	res, ok := h.result(c)
	if !ok {
		return
	}
	if len(res.Highlighted) == 0 {
		msg := "no highlighted copy for this analysis"
		if res.HighlightError != nil {
			msg = res.HighlightError.Error()
		}
		c.JSON(http.StatusNotFound, gin.H{"error": msg})
		return
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": res.HighlightedName(h.highlightPrefix)})
	c.Header("Content-Disposition", disposition)
	c.Data(http.StatusOK, res.Document.Type.ContentType(), res.Highlighted)
}

func (h *Handler) result(c *gin.Context) (*pipeline.Result, bool) {
	v, ok := h.results.Get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "analysis not found or expired"})
		return nil, false
	}
	return v.(*pipeline.Result), true
}

func (h *Handler) session(id string) *pipeline.Session {
	if v, ok := h.sessions.Get(id); ok {
		s := v.(*pipeline.Session)
		h.sessions.SetDefault(id, s)
		return s
	}
	s := pipeline.NewSession(h.analyzer)
	if err := h.sessions.Add(id, s, gocache.DefaultExpiration); err != nil {
		// lost a race with a concurrent request for the same session
		if v, ok := h.sessions.Get(id); ok {
			return v.(*pipeline.Session)
		}
	}
	return s
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrUnsupportedType):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, model.ErrTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, model.ErrExtraction), errors.Is(err, model.ErrOCR):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
