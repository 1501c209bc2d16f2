package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biasbench/biasbench/internal/adapter"
	"github.com/biasbench/biasbench/internal/tui"
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List the models that can be audited",
	Long:  "Prints the model catalog with the provider model each key maps to.",
	RunE:  runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	table := adapter.NewTable(adapter.Clients{}, adapter.Options{
		ModelOverrides: cfg.Models,
		Logger:         silentLogger(),
	})
	fmt.Print(tui.RenderModels(table.Specs(), cfg.DefaultModels))
	return nil
}
