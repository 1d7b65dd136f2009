package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the alert and task tables in Postgres",
	RunE:  runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	a, log, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.Migrate(cmd.Context()); err != nil {
		return err
	}
	log.Info("schema ready")
	fmt.Fprintln(cmd.OutOrStdout(), "ok")
	return nil
}
