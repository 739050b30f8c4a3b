package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/defeval/internal/config"
	"github.com/danielpatrickdp/defeval/internal/eval"
	"github.com/danielpatrickdp/defeval/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded evaluation runs of a model directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		modelDir, _ := cmd.Flags().GetString("model_dir")
		restore, _ := cmd.Flags().GetString("restore_file")
		limit, _ := cmd.Flags().GetInt("limit")
		output, _ := cmd.Flags().GetString("output")
		cfgPath, _ := cmd.Flags().GetString("config")
		if cfgPath == "" {
			cfgPath = filepath.Join(modelDir, config.DefaultConfigFile)
		}

		cfg, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		store, err := history.NewStore(cfg.HistoryPath(modelDir))
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.List(restore, limit)
		if err != nil {
			return err
		}
		return printRuns(cmd.OutOrStdout(), cmd.ErrOrStderr(), runs, output)
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().String("model_dir", "experiments/base_model", "Directory containing the history database")
	historyCmd.Flags().String("restore_file", "", "only show runs of this checkpoint")
	historyCmd.Flags().Int("limit", 20, "show N most recent runs")
	historyCmd.Flags().StringP("output", "o", "text", "Output format (text or json)")
	historyCmd.Flags().String("config", "", "runtime config file (default <model_dir>/eval.yml)")
}

type runRow struct {
	RunID       string             `json:"run_id"`
	RestoreFile string             `json:"restore_file"`
	Split       string             `json:"split"`
	ModelType   string             `json:"model_type,omitempty"`
	Loss        float64            `json:"loss"`
	Metrics     map[string]float64 `json:"metrics"`
	CreatedAt   string             `json:"created_at"`
}

// printRuns writes runs to w. An empty text listing is reported on errW; json
// output always yields an array.
func printRuns(w, errW io.Writer, runs []history.Run, output string) error {
	if output == "json" {
		rows := make([]runRow, len(runs))
		for i, r := range runs {
			rows[i] = runRow{
				RunID:       r.RunID,
				RestoreFile: r.RestoreFile,
				Split:       r.Split,
				ModelType:   r.ModelType,
				Loss:        r.Loss,
				Metrics:     r.Metrics,
				CreatedAt:   r.CreatedAt.Format("2006-01-02T15:04:05Z"),
			}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	if len(runs) == 0 {
		fmt.Fprintln(errW, "no runs found")
		return nil
	}

	fmt.Fprintf(w, "%-8s  %-12s  %-6s  %8s  %8s  %s\n", "Run", "Checkpoint", "Split", "Loss", "F1", "Time")
	fmt.Fprintf(w, "%-8s+-%-12s+-%-6s+-%8s+-%8s+-%s\n",
		"--------", "------------", "------", "--------", "--------", "--------------------")
	for _, r := range runs {
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		fmt.Fprintf(w, "%-8s  %-12s  %-6s  %8.4f  %8.4f  %s\n",
			id, r.RestoreFile, r.Split, r.Loss, r.Metrics["f1score"], r.CreatedAt.Format("2006-01-02T15:04:05Z"))
		fmt.Fprintf(w, "          %s\n", eval.FormatMetrics(r.Metrics))
	}
	return nil
}
