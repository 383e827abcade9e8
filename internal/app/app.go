package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/drstein77/furniturepredictor/internal/config"
	"github.com/drstein77/furniturepredictor/internal/controllers"
	"github.com/drstein77/furniturepredictor/internal/dbkeeper"
	"github.com/drstein77/furniturepredictor/internal/logger"
	"github.com/drstein77/furniturepredictor/internal/pipeline"
	"github.com/drstein77/furniturepredictor/internal/predictor"
	"github.com/drstein77/furniturepredictor/internal/storage"
)

// Ledger is the store behind the HTTP handlers.
type Ledger interface {
	controllers.Storage
	Close() bool
}

type Server struct {
	srv    *http.Server
	ctx    context.Context
	option *config.Options
	ledger Ledger
	ready  bool
	Log    *logger.Logger
}

// NewServer creates a new Server instance with the provided context. It
// parses options and wires the pipeline, storage and routes, so the returned
// Server is complete before Serve or Shutdown run.
func NewServer(ctx context.Context) *Server {
	// create and initialize a new option instance
	option := config.NewOptions()
	option.ParseFlags()

	// get a new logger
	nLogger, err := logger.NewLogger(option.LogLevel())
	if err != nil {
		log.Fatalln(err)
	}

	server, err := newServer(ctx, option, nLogger)
	if err != nil {
		nLogger.Error("Failed to start", zap.Error(err))
		log.Fatalln(err)
	}
	return server
}

func newServer(ctx context.Context, option *config.Options, nLogger *logger.Logger) (*Server, error) {
	server := &Server{
		ctx:    ctx,
		option: option,
		Log:    nLogger,
	}

	rules, err := server.loadRules()
	if err != nil {
		return nil, fmt.Errorf("failed to load pipeline rules: %w", err)
	}

	p, err := pipeline.New(server.loadModel(rules), rules)
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	server.ledger, err = server.openLedger()
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	// create router and mount routes
	basecontr := controllers.NewBaseController(p, server.ledger, server.Log,
		option.MaxUploadBytes(), option.CORSOrigins())

	server.srv = &http.Server{
		Addr:              option.RunAddr(),
		Handler:           basecontr.Route(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	server.ready = p.Ready()

	return server, nil
}

// Serve blocks serving HTTP until Shutdown is called.
func (server *Server) Serve() {
	server.Log.Info("Server started", zap.String("addr", server.srv.Addr), zap.Bool("model_ready", server.ready))
	if err := server.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		server.Log.Error("Server failed", zap.Error(err))
		log.Fatalln(err)
	}
}

// Shutdown stops accepting requests, waits up to timeout for in-flight ones
// and releases storage.
func (server *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if server.srv != nil {
		if err := server.srv.Shutdown(ctx); err != nil {
			server.Log.Error("Server shutdown failed", zap.Error(err))
		}
	}
	if server.ledger != nil {
		server.ledger.Close()
	}

	server.Log.Info("Server stopped")
	_ = server.Log.Sync()
}

func (server *Server) loadRules() (pipeline.Rules, error) {
	path := server.option.RulesPath()
	if path == "" {
		return pipeline.DefaultRules(), nil
	}

	rules, err := pipeline.LoadRules(path)
	if err != nil {
		return pipeline.Rules{}, err
	}
	server.Log.Info("Pipeline rules loaded", zap.String("path", path))
	return rules, nil
}

// loadModel returns nil when no artifact is configured, it cannot be loaded
// or its features differ from the required fields. The service still starts
// and uploads answer model_unavailable.
func (server *Server) loadModel(rules pipeline.Rules) pipeline.Model {
	src := predictor.Source{
		Path:             server.option.ModelPath(),
		BlobURL:          server.option.ModelBlobURL(),
		ConnectionString: server.option.ModelBlobConnectionString(),
	}
	if !src.Configured() {
		server.Log.Warn("No model artifact configured")
		return nil
	}

	m, err := predictor.Load(server.ctx, src)
	if err != nil {
		server.Log.Error("Failed to load model", zap.Stringer("source", src), zap.Error(err))
		return nil
	}
	if err := m.Accepts(rules.RequiredFields); err != nil {
		server.Log.Error("Model does not fit the pipeline rules", zap.Stringer("source", src), zap.Error(err))
		return nil
	}

	server.Log.Info("Model loaded", zap.Stringer("source", src), zap.Strings("features", m.Features()))
	return m
}

func (server *Server) openLedger() (Ledger, error) {
	if server.option.DataBaseDSN() == "" {
		server.Log.Info("No database configured, keeping data in memory")
		return storage.NewMemoryStorage(server.Log), nil
	}

	kp, err := dbkeeper.NewDBKeeper(server.ctx, server.option.DataBaseDSN, server.Log)
	if err != nil {
		return nil, err
	}
	return kp, nil
}
