package main

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/defeval/internal/checkpoint"
	"github.com/danielpatrickdp/defeval/internal/codec"
	"github.com/danielpatrickdp/defeval/internal/config"
	"github.com/danielpatrickdp/defeval/internal/dataset"
	"github.com/danielpatrickdp/defeval/internal/eval"
	"github.com/danielpatrickdp/defeval/internal/history"
	"github.com/danielpatrickdp/defeval/internal/model"
	"github.com/danielpatrickdp/defeval/internal/params"
)

// #region command
type evaluateOptions struct {
	DataDir     string
	ModelDir    string
	RestoreFile string
	Split       string
	ConfigPath  string
	NoHistory   bool
}

var evalOpts evaluateOptions

var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "Evaluate a checkpoint on the test split",
	Long: `Evaluate a checkpoint on the test split.

Loads <model_dir>/params.json, restores <model_dir>/<restore_file>.pth.tar and
writes metrics_test_<restore_file>.json and output_tagged_sentences.txt into
the model directory.

Example:
  defeval evaluate --data_dir data/small --model_dir experiments/base_model --restore_file best`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runEvaluate(cmd.Context(), evalOpts)
		return err
	},
}

func init() {
	rootCmd.AddCommand(evaluateCmd)
	f := evaluateCmd.Flags()
	f.StringVar(&evalOpts.DataDir, "data_dir", "data/small", "Directory containing the dataset")
	f.StringVar(&evalOpts.ModelDir, "model_dir", "experiments/base_model", "Directory containing params.json")
	f.StringVar(&evalOpts.RestoreFile, "restore_file", "best", "name of the file in --model_dir containing weights to load")
	f.StringVar(&evalOpts.Split, "split", "", "dataset split to evaluate (default from config: test)")
	f.StringVar(&evalOpts.ConfigPath, "config", "", "runtime config file (default <model_dir>/eval.yml)")
	f.BoolVar(&evalOpts.NoHistory, "no-history", false, "do not record the run in the history database")
}

// #endregion command

// #region run
func runEvaluate(ctx context.Context, opts evaluateOptions) (eval.Result, error) {
	p, err := params.Load(filepath.Join(opts.ModelDir, "params.json"))
	if err != nil {
		return eval.Result{}, err
	}
	p.Cuda = false

	cfgPath := opts.ConfigPath
	if cfgPath == "" {
		cfgPath = filepath.Join(opts.ModelDir, config.DefaultConfigFile)
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return eval.Result{}, err
	}
	split := cfg.Split
	if opts.Split != "" {
		split = opts.Split
	}

	restoreLog, err := setLogger(filepath.Join(opts.ModelDir, "evaluate.log"))
	if err != nil {
		return eval.Result{}, err
	}
	defer restoreLog()

	log.Println("Creating the dataset...")
	loader, err := dataset.NewLoader(opts.DataDir, p)
	if err != nil {
		return eval.Result{}, fmt.Errorf("create loader: %w", err)
	}
	data, err := loader.LoadData([]string{split}, opts.DataDir)
	if err != nil {
		return eval.Result{}, fmt.Errorf("load data: %w", err)
	}
	testData := data[split]
	log.Printf("Loading %s", opts.DataDir)

	p.TestSize = testData.Size
	it := loader.Iterator(testData, false)
	log.Println("- done.")

	var encoder model.Encoder
	if model.NeedsEncoder(p.ModelType) {
		client, err := codec.NewCodecClient(cfg.CodecAddr, codec.Options{
			ChunkSize: cfg.ChunkSize,
			Workers:   cfg.Workers,
			Timeout:   cfg.Timeout(),
		})
		if err != nil {
			return eval.Result{}, err
		}
		defer client.Close()
		encoder = client
		log.Printf("Using encoder at %s", cfg.CodecAddr)
	}

	m, err := model.New(p, encoder, loader.VocabSize(), loader.PadID())
	if err != nil {
		return eval.Result{}, err
	}

	log.Println("Starting evaluation")

	ckptPath := filepath.Join(opts.ModelDir, opts.RestoreFile+".pth.tar")
	if _, err := checkpoint.Restore(ckptPath, m); err != nil {
		return eval.Result{}, fmt.Errorf("restore %s: %w", ckptPath, err)
	}

	numSteps := eval.NumSteps(p.TestSize, p.BatchSize)
	res, err := eval.Evaluate(ctx, m, model.LossFn, it, model.Metrics, p, numSteps, eval.Options{
		CollectTagged: true,
		TagName:       loader.Tag,
	})
	if err != nil {
		return eval.Result{}, fmt.Errorf("evaluate %s: %w", m.Name(), err)
	}

	if err := eval.WriteTagged(filepath.Join(opts.ModelDir, eval.TaggedFileName), res.Tagged); err != nil {
		return eval.Result{}, err
	}
	savePath := filepath.Join(opts.ModelDir, eval.MetricsFileName(opts.RestoreFile))
	if err := eval.SaveDictToJSON(res.Metrics, savePath); err != nil {
		return eval.Result{}, err
	}

	if !opts.NoHistory {
		if err := recordRun(cfg.HistoryPath(opts.ModelDir), opts, split, p, res); err != nil {
			log.Printf("history: %v", err)
		}
	}
	return res, nil
}

func recordRun(dbPath string, opts evaluateOptions, split string, p *params.Params, res eval.Result) error {
	store, err := history.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	run, err := store.Record(history.Run{
		ModelDir:    opts.ModelDir,
		RestoreFile: opts.RestoreFile,
		DataDir:     opts.DataDir,
		Split:       split,
		ModelType:   p.ModelType,
		NumSteps:    res.Steps,
		Loss:        res.Loss,
		Metrics:     res.Metrics,
	})
	if err != nil {
		return err
	}
	log.Printf("Recorded run %s", run.RunID)
	return nil
}

// #endregion run
