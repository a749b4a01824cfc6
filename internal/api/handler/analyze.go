package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/timmy/veris/internal/domain"
	"github.com/timmy/veris/internal/logger"
	"github.com/timmy/veris/internal/service"
)

// Pipeline runs submissions and single claims.
type Pipeline interface {
	Process(ctx context.Context, in *service.SubmissionInput) (*domain.PipelineResult, error)
	VerifyClaim(ctx context.Context, claim domain.ExtractedClaim) domain.VerificationResult
}

// AnalyzeHandler exposes the fact-check pipeline.
type AnalyzeHandler struct {
	pipeline    Pipeline
	fetcher     service.PageFetcher
	maxUploadMB int64
}

// NewAnalyzeHandler creates a new analyze handler.
// Parameters:
//   - pipeline: coordinator running submissions.
//   - fetcher: article fetcher for page_url requests; may be nil.
//   - maxUploadMB: upload size cap for multipart requests.
// Returns:
//   - *AnalyzeHandler: initialized handler.
func NewAnalyzeHandler(pipeline Pipeline, fetcher service.PageFetcher, maxUploadMB int) *AnalyzeHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 50
	}
	return &AnalyzeHandler{
		pipeline:    pipeline,
		fetcher:     fetcher,
		maxUploadMB: int64(maxUploadMB),
	}
}

// AnalyzeRequest is the JSON body of POST /api/v1/analyze.
type AnalyzeRequest struct {
	OriginLabel string                 `json:"origin_label"`
	OriginURL   string                 `json:"origin_url"`
	Kind        string                 `json:"kind"`
	Text        string                 `json:"text"`
	URL         string                 `json:"url"`
	PageURL     string                 `json:"page_url"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// VerifyClaimRequest is the JSON body of POST /api/v1/verify-claim.
type VerifyClaimRequest struct {
	Claim    string `json:"claim" binding:"required"`
	Category string `json:"category"`
	Context  string `json:"context"`
}

// Analyze handles POST /api/v1/analyze with a JSON or multipart body.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *AnalyzeHandler) Analyze(c *gin.Context) {
	ctx := c.Request.Context()

	var (
		in  *service.SubmissionInput
		err error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		in, err = h.multipartInput(c)
	} else {
		in, err = h.jsonInput(c)
	}
	if err != nil {
		writeInputError(c, err)
		return
	}

	result, err := h.pipeline.Process(ctx, in)
	if err != nil {
		writeInputError(c, err)
		return
	}

	logger.With(logger.Fields{
		logger.FieldSubmissionID: result.SubmissionID,
		logger.FieldCount:        result.TotalClaims,
	}).Info(ctx, "Submission analyzed: state=%s", result.State)

	c.JSON(http.StatusOK, result)
}

func (h *AnalyzeHandler) jsonInput(c *gin.Context) (*service.SubmissionInput, error) {
	var req AnalyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return nil, &badRequest{msg: "Invalid request: " + err.Error()}
	}

	in := &service.SubmissionInput{
		OriginLabel: req.OriginLabel,
		OriginURL:   req.OriginURL,
		Kind:        req.Kind,
		Text:        req.Text,
		URL:         req.URL,
		Metadata:    req.Metadata,
	}

	pageURL := strings.TrimSpace(req.PageURL)
	if pageURL == "" {
		return in, nil
	}
	if strings.TrimSpace(req.Text) != "" || strings.TrimSpace(req.URL) != "" {
		return nil, domain.ErrMixedContent
	}
	if h.fetcher == nil {
		return nil, &badRequest{msg: "page_url is not supported by this server"}
	}

	article, err := h.fetcher.Fetch(c.Request.Context(), pageURL)
	if err != nil {
		return nil, &upstreamError{msg: "Failed to fetch page: " + err.Error()}
	}
	in.Kind = string(domain.KindText)
	in.Text = article.SubmissionText()
	in.OriginURL = pageURL
	if in.Metadata == nil {
		in.Metadata = map[string]interface{}{}
	}
	in.Metadata["page_title"] = article.Title
	return in, nil
}

func (h *AnalyzeHandler) multipartInput(c *gin.Context) (*service.SubmissionInput, error) {
	limit := h.maxUploadMB << 20
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)

	in := &service.SubmissionInput{
		OriginLabel: c.PostForm("origin_label"),
		OriginURL:   c.PostForm("origin_url"),
		Kind:        c.PostForm("kind"),
		Text:        c.PostForm("text"),
		URL:         c.PostForm("url"),
	}

	fh, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return in, nil
	}
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, &tooLarge{limitMB: h.maxUploadMB}
		}
		return nil, &badRequest{msg: "Invalid upload: " + err.Error()}
	}

	f, err := fh.Open()
	if err != nil {
		return nil, &badRequest{msg: "Invalid upload: " + err.Error()}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &badRequest{msg: "Invalid upload: " + err.Error()}
	}
	in.Media = &service.MediaUpload{
		Name:     fh.Filename,
		Data:     data,
		MimeType: fh.Header.Get("Content-Type"),
	}
	return in, nil
}

// VerifyClaim handles POST /api/v1/verify-claim. The verdict is not saved.
func (h *AnalyzeHandler) VerifyClaim(c *gin.Context) {
	var req VerifyClaimRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	text := strings.TrimSpace(req.Claim)
	if text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "claim must not be blank"})
		return
	}

	result := h.pipeline.VerifyClaim(c.Request.Context(), domain.ExtractedClaim{
		Text:     text,
		Category: domain.ParseCategory(req.Category),
		Context:  req.Context,
	})
	c.JSON(http.StatusOK, result)
}

type badRequest struct{ msg string }

func (e *badRequest) Error() string { return e.msg }

type upstreamError struct{ msg string }

func (e *upstreamError) Error() string { return e.msg }

type tooLarge struct{ limitMB int64 }

func (e *tooLarge) Error() string { return "upload exceeds size limit" }

// writeInputError maps ingress failures to HTTP statuses.
func writeInputError(c *gin.Context, err error) {
	var (
		br  *badRequest
		up  *upstreamError
		big *tooLarge
	)
	switch {
	case errors.Is(err, domain.ErrNoPayload), errors.Is(err, domain.ErrMixedContent), errors.Is(err, domain.ErrInvalidKind):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.As(err, &br):
		c.JSON(http.StatusBadRequest, gin.H{"error": br.msg})
	case errors.As(err, &up):
		c.JSON(http.StatusBadGateway, gin.H{"error": up.msg})
	case errors.As(err, &big):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error(), "limit_mb": big.limitMB})
	default:
		logger.CtxError(c.Request.Context(), "Analyze failed: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Analyze failed: " + err.Error()})
	}
}
