package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/biasbench/biasbench/internal/store"
	"github.com/biasbench/biasbench/internal/tui"
)

var historyJSON bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse recent audits",
	Long:  "Shows the most recent audits in a split-pane browser, or prints them as JSON.",
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().BoolVar(&historyJSON, "json", false, "print history as JSON")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	st, err := store.Open(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	records, err := st.ListRecent(ctx, cfg.HistoryLimit)
	if err != nil {
		return fmt.Errorf("list audits: %w", err)
	}

	if historyJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}

	if len(records) == 0 {
		fmt.Println("No audits yet. Run `biasbench run \"<prompt>\"` to create one.")
		return nil
	}
	return tui.RunHistoryTUI(records)
}
