package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/guzelclinic/guzel/src/internal/backup"
)

func newBackupCommand(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, restore and delete backups",
	}
	cmd.AddCommand(
		newBackupCreateCommand(configFile),
		newBackupListCommand(configFile),
		newBackupRestoreCommand(configFile),
		newBackupDeleteCommand(configFile),
		newBackupAutoCommand(configFile),
	)
	return cmd
}

func newBackupCreateCommand(configFile *string) *cobra.Command {
	var simple bool

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a full backup archive, or a plain database copy with --simple",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			var path string
			if simple {
				path, err = a.manager.CreateSimpleBackup(cmd.Context())
			} else {
				path, err = a.manager.CreateFullBackup(cmd.Context())
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&simple, "simple", false, "copy only the database file")
	return cmd
}

func newBackupListCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List backups, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			entries, err := a.manager.ListBackups()
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No backups found")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "FILENAME\tKIND\tCREATED\tSIZE")
			for _, e := range entries {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Filename, e.Kind, e.Timestamp.Format("2006-01-02 15:04:05"), humanize.IBytes(uint64(e.Size)))
			}
			return w.Flush()
		},
	}
}

func newBackupRestoreCommand(configFile *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "restore <backup>",
		Short: "Restore a backup over the live data",
		Long: "Restore a full archive (.zip) or a plain database copy (.db). The argument is either a\n" +
			"path or the filename of a backup in the backup directory. The application must be\n" +
			"restarted afterwards.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := locateBackup(a.manager, args[0])
			if err != nil {
				return err
			}

			if !yes && isTerminal(os.Stdin) {
				ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(),
					fmt.Sprintf("Restore %s? Current data will be overwritten [y/N]: ", filepath.Base(path)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Restore cancelled")
					return nil
				}
			}

			if err := a.manager.Restore(cmd.Context(), path); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Restore complete. Restart the application to load the restored data.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newBackupDeleteCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <backup>",
		Short: "Delete a backup file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			path, err := locateBackup(a.manager, args[0])
			if err != nil {
				return err
			}
			deleted, err := a.manager.DeleteBackup(path)
			if err != nil {
				return err
			}
			if !deleted {
				return fmt.Errorf("backup not found: %s", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Deleted", path)
			return nil
		},
	}
}

func newBackupAutoCommand(configFile *string) *cobra.Command {
	var (
		interval int
		kind     string
	)

	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Create a backup only if the last one is older than the interval",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if !cmd.Flags().Changed("interval") {
				interval = a.settings.BackupIntervalDays()
			}
			k, err := a.settings.BackupKind()
			if cmd.Flags().Changed("kind") {
				k, err = backup.ParseKind(kind)
			}
			if err != nil {
				return err
			}

			path, created, err := a.manager.AutoBackupIfDue(cmd.Context(), interval, k)
			if err != nil {
				return err
			}
			if !created {
				fmt.Fprintln(cmd.OutOrStdout(), "No backup due")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), path)
			return nil
		},
	}
	cmd.Flags().IntVar(&interval, "interval", 1, "interval in days (default from settings)")
	cmd.Flags().StringVar(&kind, "kind", string(backup.KindFull), "backup kind: full or simple (default from settings)")
	return cmd
}

// locateBackup accepts an existing path or a bare filename inside the backup directory
func locateBackup(m *backup.Manager, arg string) (string, error) {
	if _, err := os.Stat(arg); err == nil {
		return filepath.Abs(arg)
	} else if !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	if filepath.Base(arg) != arg {
		return "", fmt.Errorf("backup not found: %s", arg)
	}
	return m.ResolveBackup(arg)
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func confirm(in io.Reader, out io.Writer, prompt string) (bool, error) {
	fmt.Fprint(out, prompt)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes", nil
}
