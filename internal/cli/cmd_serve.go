package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"fintrack/internal/amqp"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 30 * time.Second

// pinger is implemented by stores that can check their connection.
type pinger interface {
	Ping(ctx context.Context) error
}

func (a *App) serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the recurring expense processor",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			noScheduler, _ := cmd.Flags().GetBool("no-scheduler")
			return a.serve(cmd.Context(), !noScheduler)
		},
	}
	cmd.Flags().StringP("port", "p", "", "Port to listen on (default: PORT or 8081)")
	cmd.Flags().Bool("no-scheduler", false, "Do not apply recurring expenses periodically")
	return cmd
}

func (a *App) serve(parent context.Context, withScheduler bool) error {
	opts := []apphttp.Option{apphttp.WithClock(a.today)}
	if p, ok := a.backend.Store.(pinger); ok {
		opts = append(opts, apphttp.WithReadiness(p.Ping))
	}
	srv := apphttp.NewServer(":"+a.cfg.Port, a.tracker, a.logger, opts...)

	ctx, cancel := GracefulShutdown(parent, a.logger, shutdownTimeout, nil)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		a.logger.Info("Starting fintrack server",
			"port", a.cfg.Port,
			applog.FieldBackend, a.cfg.DataBackend,
			applog.FieldOperation, applog.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown: %w", err)
		}
		a.logger.Info("Server stopped gracefully")
		return nil
	})
	if withScheduler {
		scheduler := services.NewScheduler(a.tracker, a.cfg.RecurringInterval, a.logger)
		g.Go(func() error { return scheduler.Run(gctx) })
	}
	return g.Wait()
}

func (a *App) eventsCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "events",
		Short:       "Print materialized recurring expense events from the broker",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{annotationSkipApply: "true"},
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, ok := a.backend.Publisher.(*amqp.Client)
			if !ok {
				return errors.New("AMQP is not configured: set AMQP_URL")
			}
			ctx, cancel := GracefulShutdown(cmd.Context(), a.logger, shutdownTimeout, nil)
			defer cancel()

			a.info("Waiting for events, press Ctrl+C to stop")
			err := client.ConsumeMaterialized(ctx, func(m *amqp.ExpenseMaterializedMessage) error {
				a.success("%s %s %s %s (expense %s, template %s)",
					m.Date, m.Name, m.Amount, m.Currency, m.ExpenseID, m.RecurringID)
				return nil
			})
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}
}
