// Command defeval evaluates trained sentence taggers against a held-out split.
//
//	defeval evaluate --data_dir data/small --model_dir experiments/base_model --restore_file best
//	defeval history --model_dir experiments/base_model
//	defeval rescore --file experiments/base_model/output_tagged_sentences.txt --positive DEF
//
// Runtime settings for the remote encoder and run history are read from
// <model_dir>/eval.yml (or --config) and DEFEVAL_* environment variables.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "defeval",
	Short:         "Evaluate sentence tagging models",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
