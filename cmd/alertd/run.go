package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/lexdesk/deadline-alerts/internal/credential"
	"github.com/lexdesk/deadline-alerts/internal/dispatch"
	"github.com/lexdesk/deadline-alerts/internal/job"
	"github.com/lexdesk/deadline-alerts/internal/mailer"
	"github.com/lexdesk/deadline-alerts/internal/model"
	"github.com/lexdesk/deadline-alerts/internal/store"
)

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Execute a single alert pass and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return fmt.Errorf("initializing logger: %w", err)
			}
			defer func() { _ = logger.Sync() }()

			cfg, err := model.LoadConfig(configPath)
			if err != nil {
				return fmt.Errorf("loading config %s: %w", configPath, err)
			}

			s, err := store.NewSQLiteStore(cfg.DBPath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer func() { _ = s.Close() }()

			var transport dispatch.Transport
			if cfg.SMTP.Host != "" {
				password, err := credential.Get(credential.KeySMTPPassword)
				if err != nil {
					logger.Warn("smtp password not found in keyring", zap.Error(err))
				}
				transport = mailer.NewSMTPTransport(cfg.SMTP, password)
			}

			dispatcher := dispatch.New(s, transport, logger, dispatch.Options{
				SendTimeout: time.Duration(cfg.Job.DispatchTimeoutSec) * time.Second,
			})
			runner := job.New(s, dispatcher, logger, job.Options{Workers: cfg.Job.Workers})

			summary, err := runner.RunPass(cmd.Context())
			if err != nil {
				return fmt.Errorf("alert pass: %w", err)
			}

			fmt.Printf("examined=%d dispatched=%d suppressed=%d failed=%d overdue=%d duration=%s\n",
				summary.Examined, summary.Dispatched, summary.Suppressed,
				summary.Failed, summary.MarkedOverdue, summary.Duration.Round(time.Millisecond))
			return nil
		},
	}
}
