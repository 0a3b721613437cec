package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/careerkit/cvchat/internal/assist"
	"github.com/careerkit/cvchat/internal/auth"
	"github.com/careerkit/cvchat/internal/command"
	"github.com/careerkit/cvchat/internal/config"
	"github.com/careerkit/cvchat/internal/fetch"
	"github.com/careerkit/cvchat/internal/history"
	"github.com/careerkit/cvchat/internal/intent"
	"github.com/careerkit/cvchat/internal/observability"
	"github.com/careerkit/cvchat/internal/server"
)

// app holds the long-lived collaborators shared by every chat session.
type app struct {
	cfg       *config.Config
	logger    *zap.Logger
	fetcher   *fetch.Fetcher
	suggester assist.Suggester
	store     *history.Store
	verifier  *auth.Verifier
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err := observability.NewLogger(cfg.LogLevel, cfg.LogJSON)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		logger:  logger,
		fetcher: fetch.New(&fetch.Options{UseBrowser: cfg.UseBrowser}),
	}

	if cfg.GeminiAPIKey != "" {
		suggester, err := assist.NewGemini(ctx, cfg.GeminiAPIKey, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create suggester: %w", err)
		}
		a.suggester = suggester
	} else {
		a.suggester = assist.Static{}
	}

	if cfg.DatabaseURL != "" {
		store, err := history.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect transcript store: %w", err)
		}
		a.store = store
	}

	if cfg.JWTSecret != "" {
		verifier, err := auth.NewVerifier(cfg.JWTSecret)
		if err != nil {
			return nil, err
		}
		a.verifier = verifier
	}

	return a, nil
}

func (a *app) Close() {
	if a.store != nil {
		a.store.Close()
	}
	if a.suggester != nil {
		_ = a.suggester.Close()
	}
	_ = a.logger.Sync()
}

// newSession builds one chat session around a fresh intent client. tokens
// supplies the end-user bearer token for executed endpoints.
func (a *app) newSession(tokens auth.TokenSource) (*command.Session, error) {
	client, err := intent.NewClient(intent.Options{
		BaseURL: a.cfg.IntentBaseURL,
		APIKey:  a.cfg.IntentAPIKey,
		UserID:  a.cfg.UserID,
		Logger:  a.logger,
	})
	if err != nil {
		return nil, err
	}

	// A nil *history.Store must stay a nil interface.
	var recorder command.TranscriptRecorder
	if a.store != nil {
		recorder = a.store
	}

	processor := command.NewProcessor(client, tokens, command.ProcessorOptions{
		Fetcher:   a.fetcher,
		Suggester: a.suggester,
		Recorder:  recorder,
		Logger:    a.logger,
	})
	return command.NewSession(client, processor, tokens, a.logger), nil
}

// sessionFactory builds sessions for the HTTP server; each one reads the
// bearer token from the request context.
func (a *app) sessionFactory() server.SessionFactory {
	return func() (*command.Session, error) {
		return a.newSession(&auth.ContextSource{Verifier: a.verifier})
	}
}
