package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Process every region once and print the run summary as JSON",
	RunE:  runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
}

func runOnce(cmd *cobra.Command, _ []string) error {
	a, _, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	res := a.RunOnce(cmd.Context())
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("encode result: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("run failed: %s", res.Error)
	}
	return nil
}
