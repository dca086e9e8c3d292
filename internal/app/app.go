package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/joho/godotenv"

	"pairchat/pkg/config"
	"pairchat/pkg/maintenance"
	"pairchat/pkg/presence"
	"pairchat/pkg/store"
	"pairchat/pkg/telemetry"
)

// App encapsulates the server components and lifecycle.
type App struct {
	eff       config.EffectiveConfigResult
	version   string
	commit    string
	buildDate string

	srv *http.Server
}

// New initializes resources that do not require a running context (DB,
// runtime keys, presence tuning). It does not start the HTTP server; call
// Run to start it and block until shutdown.
func New(eff config.EffectiveConfigResult, version, commit, buildDate string) (*App, error) {
	_ = godotenv.Load(".env")

	// validate effective config early and fail fast
	if err := validateConfig(eff); err != nil {
		return nil, err
	}

	// runtime keys
	runtimeCfg := &config.RuntimeConfig{BackendKeys: map[string]struct{}{}, SigningKeys: map[string]struct{}{}}
	for _, k := range eff.Config.Security.APIKeys.Backend {
		runtimeCfg.BackendKeys[k] = struct{}{}
		runtimeCfg.SigningKeys[k] = struct{}{}
	}
	config.SetRuntime(runtimeCfg)

	// presence window
	presence.SetOnlineTimeout(eff.Config.Presence.OnlineTimeout.Duration())

	// telemetry tuning
	if eff.Config.Telemetry.SampleRate > 0 {
		telemetry.SetSampleRate(eff.Config.Telemetry.SampleRate)
	}
	if d := eff.Config.Telemetry.SlowThreshold.Duration(); d > 0 {
		telemetry.SetSlowThreshold(d)
	}
	telemetry.SetOutputDir(eff.Config.Telemetry.Dir)

	// open store
	if err := store.Open(eff.DBPath); err != nil {
		return nil, fmt.Errorf("failed to open pebble at %s: %w", eff.DBPath, err)
	}

	return &App{eff: eff, version: version, commit: commit, buildDate: buildDate}, nil
}

// Run starts the maintenance scheduler and the HTTP server, and blocks
// until ctx is canceled or a fatal server error occurs.
func (a *App) Run(ctx context.Context) error {
	a.printBanner()

	maintCancel, err := maintenance.Start(ctx, a.eff)
	if err != nil {
		return err
	}
	defer maintCancel()

	errCh := a.startHTTP(ctx)

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server gracefully and closes the store.
func (a *App) Shutdown(ctx context.Context) error {
	var first error
	if a.srv != nil {
		if err := a.srv.Shutdown(ctx); err != nil {
			first = err
		}
	}
	if err := store.Close(); err != nil && first == nil {
		first = err
	}
	return first
}
