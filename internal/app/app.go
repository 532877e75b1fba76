package app

import (
	"context"
	"fmt"

	"portfoliovault/config"
	"portfoliovault/internal/auth"
	"portfoliovault/internal/feedback"
	"portfoliovault/internal/vault/service"
	"portfoliovault/internal/vault/state"
	"portfoliovault/pkg/logger"
	"portfoliovault/socket"
	"portfoliovault/store"
)

// App is the application context: everything built once at startup and
// handed to whoever needs it.
type App struct {
	Config   config.Config
	Store    store.Store
	Vault    *state.Manager
	Service  *service.VaultService
	Gate     *auth.Gate
	Hub      *socket.Hub
	Feedback *feedback.Service
}

// New opens the configured store and loads the vault from it.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	st, err := store.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", cfg.StoreDriver, err)
	}
	return NewWithStore(ctx, cfg, st), nil
}

// NewWithStore wires the application around an already open store.
func NewWithStore(ctx context.Context, cfg config.Config, st store.Store) *App {
	vault := state.Load(ctx, st, logger.Sugar.Named("vault"))
	svc := service.NewVaultService(vault)
	hub := socket.NewHub(svc)
	vault.Subscribe(hub.Notify)
	gate := auth.NewGate(cfg.AdminPassword, cfg.SessionSecret, cfg.SessionTTL)
	gate.OnRevoke(hub.Revoke)

	return &App{
		Config:   cfg,
		Store:    st,
		Vault:    vault,
		Service:  svc,
		Gate:     gate,
		Hub:      hub,
		Feedback: &feedback.Service{Sender: feedback.LogSender{Log: logger.Sugar.Named("feedback")}},
	}
}

// Start runs the background workers until ctx is cancelled.
func (a *App) Start(ctx context.Context) {
	go a.Hub.Run(ctx)
}

func (a *App) Close() error {
	return a.Store.Close()
}
