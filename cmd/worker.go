package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long: `Start the background worker. It analyzes new uploads announced on Azure
Service Bus and periodically refreshes the analysis of the latest datasets.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	a, err := newApp("pickaudit-worker")
	if err != nil {
		return err
	}
	defer a.Close()

	g, ctx := errgroup.WithContext(ctx)

	if a.bus != nil {
		processor, err := a.bus.NewProcessor(10)
		if err != nil {
			return err
		}
		defer processor.Close()

		g.Go(func() error {
			log.Info().Str("queue", a.cfg.Azure.QueueName).Msg("Starting Azure Service Bus processor")
			return processor.Run(ctx, a.analyses.HandleEvent)
		})
	} else {
		log.Warn().Msg("Service Bus not configured, relying on scheduled refresh only")
	}

	g.Go(func() error {
		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return errors.Wrap(err, "failed to create scheduler")
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(a.cfg.Analysis.RefreshInterval),
			gocron.NewTask(func() {
				ran, err := a.analyses.RefreshLatest(ctx)
				if err != nil {
					log.Error().Err(err).Msg("Scheduled analysis refresh failed")
					return
				}
				if ran {
					log.Info().Msg("Scheduled analysis refresh completed")
				}
			}),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
		)
		if err != nil {
			return errors.Wrap(err, "failed to schedule refresh job")
		}

		log.Info().Dur("interval", a.cfg.Analysis.RefreshInterval).Msg("Starting analysis refresh job")
		scheduler.Start()

		<-ctx.Done()

		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
