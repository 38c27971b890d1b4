package main

import (
	"context"
	"encoding/json"
	"io"

	"github.com/nvr-ai/go-plantdx/config"
	"github.com/nvr-ai/go-plantdx/inference"
	"github.com/nvr-ai/go-plantdx/logging"
	"github.com/nvr-ai/go-plantdx/models"
	"github.com/nvr-ai/go-plantdx/pipeline"
	"github.com/nvr-ai/go-plantdx/preprocess"
	"github.com/nvr-ai/go-plantdx/treatment"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// app carries the state shared by every subcommand of one invocation.
type app struct {
	configPath string
	verbose    bool

	cfg    config.Config
	logger *zap.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "plantdx",
		Short: "Leaf disease diagnosis",
		Long: `plantdx checks whether leaf photographs are sharp enough to diagnose and
classifies them among the diseases of a chosen plant species.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(a.configPath)
			if err != nil {
				return err
			}
			if a.verbose {
				cfg.Logging.Level = "debug"
			}
			logger, err := logging.New(cfg.Logging)
			if err != nil {
				return err
			}
			a.cfg, a.logger = cfg, logger
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML configuration file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")

	root.AddCommand(
		a.speciesCmd(),
		a.treatmentsCmd(),
		a.checkCmd(),
		a.diagnoseCmd(),
		a.batchCmd(),
	)
	return root
}

// registry loads the configured class layout and reports its warnings.
func (a *app) registry() (*models.Registry, error) {
	reg, err := models.LoadRegistry(a.cfg.ManifestPath)
	if err != nil {
		return nil, err
	}
	for _, w := range reg.Warnings() {
		a.logger.Warn("class manifest", zap.String("warning", w))
	}
	return reg, nil
}

// service wires the pipeline. The classifier is loaded on first use, so commands that never
// classify never touch the model. The returned function releases the model and the database.
func (a *app) service(ctx context.Context) (*pipeline.Service, func(), error) {
	reg, err := a.registry()
	if err != nil {
		return nil, nil, err
	}
	pre, err := preprocess.NewPreprocessor(a.cfg.Preprocess)
	if err != nil {
		return nil, nil, err
	}

	classifier := inference.NewLazy(inference.NewFactory(a.cfg.Inference, a.cfg.Preprocess.Side, reg.Total()))
	opts := []pipeline.Option{pipeline.WithGate(a.cfg.Quality), pipeline.WithLogger(a.logger)}

	var store *treatment.Store
	if a.cfg.TreatmentsPath != "" {
		store, err = treatment.Open(ctx, a.cfg.TreatmentsPath)
		if err != nil {
			return nil, nil, err
		}
		opts = append(opts, pipeline.WithTreatments(store))
	}

	svc, err := pipeline.NewService(reg, pre, classifier, opts...)
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, nil, err
	}

	release := func() {
		if err := classifier.Close(); err != nil {
			a.logger.Warn("close classifier", zap.Error(err))
		}
		if store != nil {
			if err := store.Close(); err != nil {
				a.logger.Warn("close treatments", zap.Error(err))
			}
		}
	}
	return svc, release, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return errors.Wrap(enc.Encode(v), "write output")
}
