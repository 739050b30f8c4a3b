package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/defeval/internal/rescore"
)

var rescoreCmd = &cobra.Command{
	Use:   "rescore",
	Short: "Recompute metrics from a tagged-sentences dump",
	Long: `Recompute metrics from a tagged-sentences dump.

Reads output_tagged_sentences.txt as written by evaluate and prints per-tag
agreement plus precision, recall and F1 for the positive tag.

Example:
  defeval rescore --file experiments/base_model/output_tagged_sentences.txt --positive DEF --diff`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		positive, _ := cmd.Flags().GetString("positive")
		diff, _ := cmd.Flags().GetBool("diff")

		rows, err := rescore.LoadDump(file)
		if err != nil {
			return err
		}
		printRescore(cmd.OutOrStdout(), rows, positive, diff)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(rescoreCmd)
	rescoreCmd.Flags().String("file", "experiments/base_model/output_tagged_sentences.txt", "tagged-sentences dump")
	rescoreCmd.Flags().String("positive", "DEF", "tag counted as the positive class")
	rescoreCmd.Flags().Bool("diff", false, "list sentences where prediction and gold differ")
}

func printRescore(w io.Writer, rows []rescore.Row, positive string, diff bool) {
	s := rescore.Rescore(rows, positive)

	fmt.Fprintf(w, "%-12s| %-10s| %-10s| %s\n", "Tag", "Predicted", "Gold", "Matched")
	fmt.Fprintf(w, "%-12s+%-11s+%-11s+%s\n", "------------", "-----------", "-----------", "--------")
	for _, ts := range s.Tags {
		fmt.Fprintf(w, "%-12s| %-10d| %-10d| %d\n", ts.Tag, ts.Predicted, ts.Gold, ts.Matched)
	}

	fmt.Fprintf(w, "\nSummary: %d total, %d agree, %d diverge\n", s.Total, s.Agree, s.Total-s.Agree)
	fmt.Fprintf(w, "%s: tp=%d fp=%d fn=%d precision=%.3f recall=%.3f f1score=%.3f\n",
		positive, s.TP, s.FP, s.FN, s.Precision, s.Recall, s.F1)

	if diff {
		fmt.Fprintln(w)
		for _, r := range rescore.Disagreements(rows) {
			fmt.Fprintf(w, "[%s != %s] %s\n", r.Pred, r.Gold, r.Sentence)
		}
	}
}
