package cli

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/grcbook/pkg/cli/config"
	httpctrl "github.com/secmon-lab/grcbook/pkg/controller/http"
	"github.com/secmon-lab/grcbook/pkg/service/worker"
	"github.com/secmon-lab/grcbook/pkg/usecase"
	"github.com/secmon-lab/grcbook/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

func cmdServe() *cli.Command {
	var addr string
	var apiToken string
	var enableMetrics bool
	var appCfg appConfig
	var digestCfg config.Digest

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "addr",
			Usage:       "HTTP server address",
			Value:       ":8080",
			Sources:     cli.EnvVars("GRCBOOK_ADDR"),
			Destination: &addr,
		},
		&cli.StringFlag{
			Name:        "api-token",
			Usage:       "Bearer token required on /api routes",
			Sources:     cli.EnvVars("GRCBOOK_API_TOKEN"),
			Destination: &apiToken,
		},
		&cli.BoolFlag{
			Name:        "metrics",
			Usage:       "Serve Prometheus metrics on /metrics",
			Value:       true,
			Sources:     cli.EnvVars("GRCBOOK_METRICS"),
			Destination: &enableMetrics,
		},
	}

	// Add shared config flags
	flags = append(flags, appCfg.Flags()...)
	flags = append(flags, digestCfg.Flags()...)

	return &cli.Command{
		Name:    "serve",
		Aliases: []string{"s"},
		Usage:   "Start HTTP server and the digest worker",
		Flags:   flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if err := digestCfg.Validate(); err != nil {
				return err
			}

			a, err := appCfg.build(ctx, usecase.WithDigestConcurrency(digestCfg.Concurrency()))
			if err != nil {
				return err
			}
			defer a.Close()

			if apiToken == "" {
				logging.Default().Warn("API token not configured, /api routes are open")
			}

			// Start digest worker if a schedule is configured
			var digestWorker *worker.DigestWorker
			if digestCfg.Schedule() != "" {
				digestWorker, err = worker.NewDigestWorker(a.uc.Digest, digestCfg.Schedule(),
					worker.WithLocation(a.uc.Schema().Digest.TimeZone()),
					worker.WithRunOnStart(digestCfg.RunOnStart()),
				)
				if err != nil {
					return goerr.Wrap(err, "failed to create digest worker")
				}
				if err := digestWorker.Start(ctx); err != nil {
					return goerr.Wrap(err, "failed to start digest worker")
				}
			}

			serverOpts := []httpctrl.Options{
				httpctrl.WithAPIToken(apiToken),
				httpctrl.WithMetrics(enableMetrics),
			}
			if secret := appCfg.slack.SigningSecret(); secret != "" {
				if a.slack == nil {
					return goerr.New("slack signing secret requires a bot token")
				}
				serverOpts = append(serverOpts, httpctrl.WithSlackCommand(a.slack, secret, appCfg.appURL))
				logging.Default().Info("Slack slash command enabled", "path", "/slack/command")
			}

			httpHandler, err := httpctrl.New(a.uc, serverOpts...)
			if err != nil {
				return goerr.Wrap(err, "failed to create http server")
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           httpHandler,
				ReadHeaderTimeout: 30 * time.Second,
			}

			// Setup signal handling for graceful shutdown
			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

			// Start server in goroutine
			errCh := make(chan error, 1)
			go func() {
				logging.Default().Info("Starting HTTP server", "addr", addr, "metrics", enableMetrics)
				if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					errCh <- goerr.Wrap(err, "failed to start server")
				}
			}()

			// Wait for shutdown signal or server error
			select {
			case err := <-errCh:
				if digestWorker != nil {
					digestWorker.Stop()
				}
				return err
			case sig := <-sigCh:
				logging.Default().Info("Received shutdown signal", "signal", sig)

				// Stop digest worker first
				if digestWorker != nil {
					digestWorker.Stop()
				}

				// Create shutdown context with timeout
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()

				// Attempt graceful shutdown
				if err := server.Shutdown(shutdownCtx); err != nil {
					return goerr.Wrap(err, "failed to shutdown server gracefully")
				}

				logging.Default().Info("Server shutdown completed")
				return nil
			}
		},
	}
}
