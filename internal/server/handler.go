package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-rag/internal/metrics"
	"document-rag/internal/models"
	"document-rag/internal/progress"
)

// room for multipart boundaries and the model field on top of the file cap
const multipartSlack = 1 << 20

type ErrorResponse struct {
	Error string `json:"error"`
}

type ChatRequest struct {
	Query string `json:"query"`
	Model string `json:"model"`
}

type ChatResponse struct {
	Response string   `json:"response"`
	Sources  []string `json:"sources,omitempty"`
}

type ModelsResponse struct {
	Models []string `json:"models"`
}

func (s *Server) home(c *gin.Context) {
	c.HTML(http.StatusOK, "index.html", gin.H{
		"MaxUploadMB": s.cfg.Server.MaxUploadMB,
		"Formats":     s.cfg.Upload.Formats,
	})
}

func (s *Server) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, ModelsResponse{Models: s.models.List(c.Request.Context())})
}

func (s *Server) status(c *gin.Context) {
	idx := s.state.Current()
	if idx == nil {
		c.JSON(http.StatusOK, gin.H{"indexed": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"indexed": true, "index": idx.Meta()})
}

// upload answers with a server-sent event stream of progress.Event values.
// Everything but a missing file is reported on the stream.
func (s *Server) upload(c *gin.Context) {
	maxBytes := s.cfg.Server.MaxUploadBytes()
	if c.Request.ContentLength > maxBytes+multipartSlack {
		s.metrics.UploadFinished(metrics.OutcomeError, 0)
		s.streamEvents(c, progress.Failed(tooLargeMessage(s.cfg.Server.MaxUploadMB)))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+multipartSlack)

	fh, err := c.FormFile("file")
	if err != nil {
		log.Debug().Err(err).Msg("Upload without file")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "No file uploaded"})
		return
	}
	if fh.Size > maxBytes {
		s.metrics.UploadFinished(metrics.OutcomeError, 0)
		s.streamEvents(c, progress.Failed(tooLargeMessage(s.cfg.Server.MaxUploadMB)))
		return
	}

	doc, err := readDocument(fh)
	if err != nil {
		log.Error().Err(err).Str("file", fh.Filename).Msg("Could not read upload")
		s.metrics.UploadFinished(metrics.OutcomeError, 0)
		s.streamEvents(c, progress.Failed("Could not read the uploaded file"))
		return
	}

	stream := s.indexer.Submit(c.Request.Context(), doc, c.PostForm("model"))
	s.streamEvents(c, stream)
}

func readDocument(fh *multipart.FileHeader) (models.Document, error) {
	f, err := fh.Open()
	if err != nil {
		return models.Document{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return models.Document{}, err
	}
	return models.Document{
		Name:   fh.Filename,
		Format: models.FormatFromFilename(fh.Filename),
		Data:   data,
	}, nil
}

func tooLargeMessage(maxMB int64) string {
	return fmt.Sprintf("File is too large (limit %d MB)", maxMB)
}

func (s *Server) chat(c *gin.Context) {
	var req ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		s.metrics.ChatFinished(metrics.OutcomeError)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	resp, err := s.rag.Query(c.Request.Context(), req.Query, req.Model)
	if err != nil {
		log.Warn().Err(err).Str("model", req.Model).Msg("Chat failed")
		s.metrics.ChatFinished(metrics.OutcomeError)
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: models.UserMessage(err)})
		return
	}

	s.metrics.ChatFinished(metrics.OutcomeSuccess)
	c.JSON(http.StatusOK, ChatResponse{Response: resp.Content, Sources: resp.Sources})
}
