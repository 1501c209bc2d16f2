package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/biasbench/biasbench/internal/audit"
	"github.com/biasbench/biasbench/internal/model"
	"github.com/biasbench/biasbench/internal/store"
	"github.com/biasbench/biasbench/internal/tui"
)

var (
	runModelKeys []string
	runDryRun    bool
	runJSON      bool
	runPick      bool
)

var runCmd = &cobra.Command{
	Use:   "run <prompt>",
	Short: "Run a single audit from the terminal",
	Long:  "Sends the prompt to the selected models, judges the answers, saves the audit and prints the result.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runRun,
}

func init() {
	runCmd.Flags().StringSliceVarP(&runModelKeys, "models", "m", nil, "comma-separated model keys (default: configured default_models)")
	runCmd.Flags().BoolVar(&runDryRun, "dry-run", false, "do not save or notify the audit")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "print the result as JSON")
	runCmd.Flags().BoolVar(&runPick, "pick", false, "choose models interactively")
	rootCmd.AddCommand(runCmd)
}

// runResult is the JSON printed by `run --json`. It matches the API envelope.
type runResult struct {
	Status        string           `json:"status"`
	Data          runData          `json:"data"`
	AuditID       int64            `json:"audit_id"`
	IgnoredModels []model.ModelKey `json:"ignored_models,omitempty"`
}

type runData struct {
	Responses model.ResponseSet `json:"responses"`
	Verdict   model.Verdict     `json:"verdict"`
}

func runRun(cmd *cobra.Command, args []string) error {
	prompt := strings.Join(args, " ")
	if err := audit.ValidatePrompt(prompt); err != nil {
		return err
	}

	// Log to stderr only in debug mode; stdout carries the spinner or JSON.
	logger := silentLogger()
	if debug {
		logger = newLogger(os.Stderr, true)
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	interactive := !runJSON && isatty.IsTerminal(os.Stdout.Fd())

	var st store.Store = store.NewNopStore()
	if !runDryRun {
		st, err = store.Open(context.Background(), cfg.Storage)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
	}
	defer st.Close()

	n := auditNotifier(cfg, runDryRun, &http.Client{Timeout: 30 * time.Second}, logger)
	svc, table := buildService(cfg, st, n, logger)

	models := model.ParseModelKeys(runModelKeys)
	if runPick && interactive {
		models, err = tui.RunModelPicker(table.Specs(), svc.DefaultModels())
		if err != nil {
			return fmt.Errorf("model picker: %w", err)
		}
		if models == nil {
			return nil
		}
	}

	runFn := func(ctx context.Context) (audit.Outcome, error) {
		return svc.RunAudit(ctx, prompt, models)
	}

	var out audit.Outcome
	if interactive {
		out, err = tui.RunLoader("Auditing models", runFn)
	} else {
		out, err = runFn(context.Background())
	}
	if err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}

	if runJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runResult{
			Status:        "success",
			Data:          runData{Responses: out.Result.Responses, Verdict: out.Result.Verdict},
			AuditID:       out.ID,
			IgnoredModels: out.Result.Ignored,
		})
	}

	if len(out.Result.Ignored) > 0 {
		fmt.Fprintf(os.Stderr, "ignored unknown models: %v\n", out.Result.Ignored)
	}
	fmt.Print(tui.RenderResult(model.AuditRecord{
		ID:        out.ID,
		Prompt:    prompt,
		Responses: out.Result.Responses,
		Verdict:   out.Result.Verdict,
		CreatedAt: time.Now(),
	}, 0))
	return nil
}
