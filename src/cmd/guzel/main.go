package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/guzelclinic/guzel/src/internal/server"
	pkgconfig "github.com/guzelclinic/guzel/src/pkg/config"
	"github.com/guzelclinic/guzel/src/pkg/utils"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "guzel",
		Short:         "Guzel beauty clinic backend: backups, restores and the local API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default: platform config dir or ./config.yaml)")

	root.AddCommand(
		newServeCommand(&configFile),
		newBackupCommand(&configFile),
		newUserCommand(&configFile),
		newVersionCommand(),
	)
	return root
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), pkgconfig.VersionString())
		},
	}
}

func newServeCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if utils.IsElevated() {
				a.log.Warn().Msg("running with elevated privileges; files created now will be owned by root")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a.startupBackup(ctx)

			srv := server.New(server.Options{
				Config:   a.cfg,
				Store:    a.store,
				Manager:  a.manager,
				Settings: a.settings,
				Logger:   a.log,
			})

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start(a.cfg.Address())
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.log.Info().Msg("shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
