package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/nvr-ai/go-plantdx/models"
	"github.com/nvr-ai/go-plantdx/pipeline"
	"github.com/nvr-ai/go-plantdx/profiler"
	"github.com/nvr-ai/go-plantdx/quality"
	"github.com/nvr-ai/go-plantdx/treatment"
	"github.com/nvr-ai/go-plantdx/util"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func (a *app) speciesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "species",
		Short: "List the supported species and their classes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := a.registry()
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, sp := range reg.Species() {
				fmt.Fprintf(w, "%s\t%s\n", sp, models.FormatLabel(string(sp)))
				classes, err := reg.Classes(sp)
				if err != nil {
					return err
				}
				for _, c := range classes {
					fmt.Fprintf(w, "  %d\t%s\t%s\n", c.Index, c.Disease, models.CommonName(sp, c.Disease))
				}
			}
			return w.Flush()
		},
	}
}

func (a *app) treatmentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "treatments [common name]",
		Short: "Show stored treatment guidance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.TreatmentsPath == "" {
				return errors.New("no treatments database configured")
			}
			store, err := treatment.Open(cmd.Context(), a.cfg.TreatmentsPath)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				t, _, err := treatment.Resolve(cmd.Context(), store, args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), t)
			}
			all, err := store.List(cmd.Context())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), all)
		},
	}
}

// checkResult is one line of `plantdx check` output.
type checkResult struct {
	Path    string           `json:"path"`
	Verdict *quality.Verdict `json:"verdict,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func (a *app) checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <image>...",
		Short: "Report whether photographs are sharp enough to diagnose",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			results := make([]checkResult, 0, len(args))
			failed := 0
			for _, path := range args {
				r := checkResult{Path: path}
				f, err := util.LoadImageFile(path)
				if err == nil {
					var v quality.Verdict
					v, err = svc.CheckQuality(cmd.Context(), f.Data)
					r.Verdict = &v
				}
				if err != nil {
					r.Verdict, r.Error = nil, err.Error()
					failed++
				}
				results = append(results, r)
			}
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			if failed > 0 {
				return errors.Errorf("%d of %d images could not be checked", failed, len(args))
			}
			return nil
		},
	}
}

// analyzeResult is the outcome for one photograph.
type analyzeResult struct {
	Path   string           `json:"path"`
	Report *pipeline.Report `json:"report,omitempty"`
	Error  string           `json:"error,omitempty"`
	Kind   string           `json:"kind,omitempty"`
}

func analyzeFile(ctx context.Context, svc *pipeline.Service, species models.SpeciesID, path string) analyzeResult {
	res := analyzeResult{Path: path}
	f, err := util.LoadImageFile(path)
	if err == nil {
		res.Report, err = svc.Analyze(ctx, f.Data, species)
	}
	if err != nil {
		res.Report = nil
		res.Error = err.Error()
		res.Kind = pipeline.Classify(err).String()
	}
	return res
}

func (a *app) diagnoseCmd() *cobra.Command {
	var species string
	cmd := &cobra.Command{
		Use:   "diagnose --species <id> <image>...",
		Short: "Check and diagnose photographs of one species",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			results := make([]analyzeResult, 0, len(args))
			for _, path := range args {
				res := analyzeFile(cmd.Context(), svc, models.SpeciesID(species), path)
				results = append(results, res)
				if res.Kind == pipeline.KindResource.String() {
					// Every remaining image would fail the same way.
					break
				}
			}
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			return summarize(results, len(args))
		},
	}
	cmd.Flags().StringVarP(&species, "species", "s", "", "Species id (run plantdx species for the list)")
	_ = cmd.MarkFlagRequired("species")
	return cmd
}

func (a *app) batchCmd() *cobra.Command {
	var (
		species     string
		dir         string
		concurrency int
		profile     bool
	)
	cmd := &cobra.Command{
		Use:   "batch --species <id> --dir <directory>",
		Short: "Diagnose every photograph in a directory concurrently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if concurrency < 1 {
				return errors.Errorf("concurrency must be at least 1, got %d", concurrency)
			}
			paths, err := util.ListDirectoryImageFiles(dir)
			if err != nil {
				return err
			}
			svc, release, err := a.service(cmd.Context())
			if err != nil {
				return err
			}
			defer release()

			prof := profiler.New(profiler.Options{})
			if profile {
				prof.Start(cmd.Context(), a.logger)
				defer prof.Stop()
			}

			results := make([]analyzeResult, len(paths))
			g, ctx := errgroup.WithContext(cmd.Context())
			g.SetLimit(concurrency)
			for i, path := range paths {
				g.Go(func() error {
					done := prof.StartOperation("analyze")
					results[i] = analyzeFile(ctx, svc, models.SpeciesID(species), path)
					if results[i].Error != "" {
						done(errors.New(results[i].Error))
					} else {
						done(nil)
					}
					// Only cancellation stops the batch; per-image failures are reported inline.
					return ctx.Err()
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			if profile {
				prof.Log(a.logger)
			}
			a.logger.Debug("batch finished", zap.Int("images", len(paths)))
			if err := writeJSON(cmd.OutOrStdout(), results); err != nil {
				return err
			}
			return summarize(results, len(paths))
		},
	}
	cmd.Flags().StringVarP(&species, "species", "s", "", "Species id (run plantdx species for the list)")
	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory of photographs")
	cmd.Flags().IntVarP(&concurrency, "concurrency", "n", 4, "Photographs analyzed at once")
	cmd.Flags().BoolVar(&profile, "profile", false, "Log timing statistics")
	_ = cmd.MarkFlagRequired("species")
	return cmd
}

func summarize(results []analyzeResult, total int) error {
	failed := 0
	for _, r := range results {
		if r.Error != "" {
			failed++
		}
	}
	if failed > 0 || len(results) < total {
		return errors.Errorf("%d of %d images failed", failed+total-len(results), total)
	}
	return nil
}
