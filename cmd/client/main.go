// client is the interactive inventory client. It restores the stored session, starts the
// session guard and reads commands from stdin until quit, EOF or a signal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"inventory-mobile/client/internal/api"
	"inventory-mobile/client/internal/audit"
	"inventory-mobile/client/internal/client/interceptors"
	"inventory-mobile/client/internal/config"
	"inventory-mobile/client/internal/db"
	"inventory-mobile/client/internal/db/migrate"
	"inventory-mobile/client/internal/health"
	"inventory-mobile/client/internal/identity/service"
	"inventory-mobile/client/internal/logging"
	"inventory-mobile/client/internal/policy/engine"
	"inventory-mobile/client/internal/security"
	"inventory-mobile/client/internal/session"
	"inventory-mobile/client/internal/session/guard"
	"inventory-mobile/client/internal/shell"
	"inventory-mobile/client/internal/telemetry"
	telemetryotel "inventory-mobile/client/internal/telemetry/otel"
	"inventory-mobile/client/internal/tokenstore"
	"inventory-mobile/client/internal/tokenstore/repository"
)

const shutdownTimeout = 10 * time.Second

// accessTokenFunc adapts a closure to interceptors.TokenSource.
type accessTokenFunc func() string

func (f accessTokenFunc) AccessToken() string { return f() }

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "client:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	providers, err := telemetryotel.NewProviders(ctx, cfg.OTLPEndpoint, cfg.ServiceName, cfg.OTLPInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	providers.SetGlobal()
	events := telemetryotel.NewEventEmitter(providers.LoggerProvider)

	if err := migrate.Run(cfg.TokenStoreDSN, "up"); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("token store migrate: %w", err)
	}
	conn, dialect, err := db.Open(cfg.TokenStoreDSN)
	if err != nil {
		return fmt.Errorf("token store: %w", err)
	}
	defer conn.Close()

	var sealer *security.Sealer
	if cfg.TokenStoreKey != "" {
		if sealer, err = security.NewSealer(cfg.TokenStoreKey); err != nil {
			return fmt.Errorf("token store key: %w", err)
		}
	}
	store := tokenstore.New(repository.NewSQLRepository(conn, dialect), sealer, logger)

	// The transport reads the state and the guard, both built on top of the API client.
	// The closures are bound before the first request goes out.
	var (
		state *session.State
		g     *guard.Guard
	)
	authn := interceptors.NewAuthenticator(
		accessTokenFunc(func() string { return state.AccessToken() }),
		interceptors.TerminatorFunc(func(ctx context.Context, reason string) { g.ForceLogout(ctx, reason) }),
		nil, logger,
		interceptors.WithAuthEvents(events),
	)
	apiClient := api.New(cfg.APIBaseURL, interceptors.NewTransport(nil, authn, logger), cfg.Timeout(), logger)

	authSvc := service.NewAuthService(apiClient, nil, events, logger)
	state = session.NewState(store, logger,
		session.WithLogoutNotifier(authSvc),
		session.WithEventEmitter(events),
	)
	authSvc.SetSession(state)

	evaluator := activityEvaluator(ctx, cfg.ActivityPolicyFile, logger)
	var policy audit.Policy = audit.RulePolicy{}
	var policyCheck health.PolicyChecker
	if evaluator != nil {
		policy, policyCheck = evaluator, evaluator
	}
	if report := health.NewChecker(conn, policyCheck).Check(ctx); !report.OK() {
		logger.Warn("client: startup health check failed", zap.Error(report.Err()))
	}

	var sh *shell.Shell
	g = guard.New(state, authSvc, guard.RedirectFunc(func(ctx context.Context, reason string) { sh.RedirectToLogin(ctx, reason) }), logger,
		guard.WithInterval(cfg.CheckInterval()),
		guard.WithBuffer(cfg.ExpiryBuffer()),
		guard.WithEventEmitter(events),
		guard.WithMeter(providers.MeterProvider.Meter("inventory-client/session")),
	)
	sh = shell.New(shell.Deps{
		Auth:     authSvc,
		Session:  state,
		Guard:    g,
		Activity: audit.NewViewModel(apiClient, state, policy, logger),
		Backend:  apiClient,
		Users:    service.NewAdminService(apiClient, state),
	}, os.Stdin, os.Stdout, logger)

	if state.Restore(ctx) {
		logger.Info("client: restored stored session")
	}
	status, err := g.Start(ctx)
	if err != nil {
		return err
	}
	if status == guard.StatusValid {
		sh.Notify(fmt.Sprintf("signed in as %s", state.Snapshot().User.Username))
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer stop()
		return sh.Run(egCtx)
	})
	runErr := eg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := g.Stop(shutdownCtx); err != nil {
		logger.Warn("client: guard stop", zap.Error(err))
	}
	state.WaitNotifications(shutdownCtx)
	if cfg.OTLPEndpoint != "" {
		// Let detached event emits reach the exporter before it shuts down.
		select {
		case <-time.After(telemetry.ShutdownDrainDuration):
		case <-shutdownCtx.Done():
		}
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		logger.Warn("client: telemetry shutdown", zap.Error(err))
	}
	logger.Info("client: stopped")
	return runErr
}

// activityEvaluator prepares the Rego activity policy, from path when set. It returns nil when
// the policy cannot be loaded or compiled; the view model then uses the built-in rules.
func activityEvaluator(ctx context.Context, path string, logger *zap.Logger) *engine.ActivityEvaluator {
	var src string
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("client: activity policy file", zap.String("path", path), zap.Error(err))
			return nil
		}
		src = string(b)
	}
	e, err := engine.NewActivityEvaluator(ctx, src, logger)
	if err != nil {
		logger.Warn("client: activity policy", zap.Error(err))
		return nil
	}
	return e
}
