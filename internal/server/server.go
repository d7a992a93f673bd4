package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"document-rag/internal/config"
	"document-rag/internal/metrics"
	"document-rag/internal/rag"
)

//go:embed web
var webFS embed.FS

const shutdownTimeout = 10 * time.Second

// ModelLister lists chat models for the front-end's picker.
type ModelLister interface {
	List(ctx context.Context) []string
}

type Server struct {
	cfg     *config.Config
	indexer *rag.Indexer
	rag     *rag.RAG
	state   *rag.IndexState
	models  ModelLister
	metrics *metrics.Metrics
	engine  *gin.Engine
}

func New(cfg *config.Config, indexer *rag.Indexer, responder *rag.RAG, state *rag.IndexState, lister ModelLister, m *metrics.Metrics) (*Server, error) {
	s := &Server{
		cfg:     cfg,
		indexer: indexer,
		rag:     responder,
		state:   state,
		models:  lister,
		metrics: m,
	}
	engine, err := s.routes()
	if err != nil {
		return nil, err
	}
	s.engine = engine
	return s, nil
}

func (s *Server) routes() (*gin.Engine, error) {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	r.MaxMultipartMemory = s.cfg.Server.MaxUploadBytes()

	tmpl, err := template.ParseFS(webFS, "web/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}
	r.SetHTMLTemplate(tmpl)

	if s.cfg.Server.StaticDir != "" {
		r.Static("/static", s.cfg.Server.StaticDir)
	} else {
		static, err := fs.Sub(webFS, "web/static")
		if err != nil {
			return nil, err
		}
		r.StaticFS("/static", http.FS(static))
	}

	r.GET("/", s.home)
	r.GET("/models", s.listModels)
	r.GET("/status", s.status)
	r.POST("/upload", s.upload)
	r.POST("/chat", s.chat)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{})))
	}
	return r, nil
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", s.cfg.Server.Addr).Msg("Listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		log.Info().Msg("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
