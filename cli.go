// Copyright (c) 2026 Li Jinling. All rights reserved.
// This software may be modified and distributed under the terms
// of the BSD-3 Clause License. See the LICENSE file for details.

package main

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/ffutop/surveysim/internal/config"
	"github.com/ffutop/surveysim/internal/output"
	"github.com/ffutop/surveysim/internal/pipeline"
	"github.com/ffutop/surveysim/internal/table"
	"github.com/ffutop/surveysim/lightcurve"
	_ "github.com/ffutop/surveysim/lightcurve/identity"
	_ "github.com/ffutop/surveysim/lightcurve/sinusoidal"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "surveysim",
		Short:         "Survey simulation post-processing: lightcurves and chunked result output",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newModelsCmd(), newInspectCmd())
	return root
}

type runOptions struct {
	configFile  string
	inputs      []string
	outDir      string
	stem        string
	verbose     bool
	dryRun      bool
	metricsFile string
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Apply the lightcurve model to observations and write them out chunk by chunk",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulation(cmd, opts)
		},
	}

	fs := cmd.Flags()
	fs.StringVarP(&opts.configFile, "config", "c", "", "Configuration file path.")
	fs.StringSliceVarP(&opts.inputs, "input", "i", nil, "Observation CSV files or glob patterns (repeatable).")
	fs.StringVarP(&opts.outDir, "outpath", "p", ".", "Output directory.")
	fs.StringVarP(&opts.stem, "stem", "t", "", "Output file stem, without extension.")
	fs.BoolVar(&opts.verbose, "verbose", false, "Log each output step.")
	fs.BoolVar(&opts.dryRun, "dry-run", false, "Run the pipeline but keep results in memory.")
	fs.StringVar(&opts.metricsFile, "metrics-file", "", "Write run metrics in Prometheus text format to this file.")

	fs.String("output-format", "", "Output format (csv, sqlite3, hdf5, h5).")
	fs.String("output-size", "", "Output columns (basic, all).")
	fs.Int("position-decimals", 0, "Decimal places for position columns.")
	fs.Int("magnitude-decimals", 0, "Decimal places for magnitude columns.")
	fs.String("lightcurve", "", "Lightcurve model name.")
	fs.Int("chunk-size", 0, "Objects per chunk.")
	fs.String("log-level", "", "Log verbosity level (debug, info, warn, error).")
	fs.String("log-file", "", "Log file name ('-' for STDERR only).")

	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("stem")
	return cmd
}

func runSimulation(cmd *cobra.Command, opts runOptions) error {
	cfg, err := config.LoadConfig(opts.configFile, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	setupLogger(cfg.Log)

	runID := uuid.NewString()
	logger := slog.Default().With("run", runID)
	logger.Info("Starting run", "format", cfg.Output.Format, "size", cfg.Output.Size, "chunk_size", cfg.Simulation.ChunkSize)

	reg, err := lightcurve.Build(lightcurve.Catalog())
	if err != nil {
		return err
	}
	var model lightcurve.Model
	if cfg.Lightcurve.Model != "" {
		if model, err = reg.New(cfg.Lightcurve.Model); err != nil {
			return err
		}
		logger.Info("Using lightcurve model", "model", model.NameID())
	}

	promReg := prometheus.NewRegistry()
	sinkOpts := []output.Option{
		output.WithLogger(logger),
		output.WithMetrics(output.NewMetrics(promReg)),
		output.WithVerbose(opts.verbose),
	}
	if opts.dryRun {
		sinkOpts = append(sinkOpts, output.WithWriter(output.NewMemoryWriter()))
	}

	sink, err := output.New(cfg.Output, output.Destination{Dir: opts.outDir, Stem: opts.stem}, sinkOpts...)
	if err != nil {
		return err
	}
	defer sink.Close()

	files, err := pipeline.ExpandInputs(opts.inputs)
	if err != nil {
		return err
	}
	obs, err := pipeline.LoadObservations(files, logger)
	if err != nil {
		return err
	}
	logger.Info("Loaded observations", "files", len(files), "rows", obs.NumRows())

	driver := pipeline.NewDriver(sink, model, cfg.Simulation.ChunkSize, logger)
	sum, err := driver.Run(cmd.Context(), obs)
	if err != nil {
		return err
	}
	if err := sink.Close(); err != nil {
		return err
	}

	logger.Info("Run complete", "objects", sum.Objects, "chunks", sum.Chunks, "rows", sum.Rows, "output", sink.Path())

	if opts.metricsFile != "" {
		if err := prometheus.WriteToTextfile(opts.metricsFile, promReg); err != nil {
			return fmt.Errorf("failed to write metrics: %w", err)
		}
	}
	return nil
}

// modelInfo is one entry of `models --yaml`.
type modelInfo struct {
	Name            string   `yaml:"name"`
	RequiredColumns []string `yaml:"required_columns"`
}

func newModelsCmd() *cobra.Command {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List the available lightcurve models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := lightcurve.Build(lightcurve.Catalog())
			if err != nil {
				return err
			}
			return listModels(cmd.OutOrStdout(), reg, asYAML)
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Print names and required columns as YAML.")
	return cmd
}

func listModels(w io.Writer, reg *lightcurve.Registry, asYAML bool) error {
	names := reg.Names()
	if !asYAML {
		for _, name := range names {
			fmt.Fprintln(w, name)
		}
		return nil
	}

	infos := make([]modelInfo, 0, len(names))
	for _, name := range names {
		m, err := reg.New(name)
		if err != nil {
			return err
		}
		infos = append(infos, modelInfo{Name: name, RequiredColumns: m.RequiredColumns()})
	}
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(infos); err != nil {
		return err
	}
	return enc.Close()
}

func newInspectCmd() *cobra.Command {
	var (
		key  string
		head int
	)
	cmd := &cobra.Command{
		Use:   "inspect <store-file>",
		Short: "Summarize a result store (.csv, .db or .h5)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return inspect(cmd, args[0], key, head)
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "Group key to select in a hierarchical file.")
	cmd.Flags().IntVar(&head, "head", 0, "Print the first N rows as CSV.")
	return cmd
}

func inspect(cmd *cobra.Command, path, key string, head int) error {
	w := cmd.OutOrStdout()

	var b *table.Batch
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		var err error
		if b, err = output.ReadCSV(path); err != nil {
			return err
		}
	case ".db":
		var err error
		if b, err = output.ReadSQLite(cmd.Context(), path); err != nil {
			return err
		}
	case ".h5":
		groups, err := output.ReadHierarchical(path)
		if err != nil {
			return err
		}
		b = table.New()
		for _, g := range groups {
			if key != "" && g.Key != key {
				continue
			}
			fmt.Fprintf(w, "group %s: %d rows\n", g.Key, g.Batch.NumRows())
			if err := b.Append(g.Batch); err != nil {
				return fmt.Errorf("group %s: %w", g.Key, err)
			}
		}
		if key != "" && b.NumColumns() == 0 {
			return fmt.Errorf("group %q not found in %s", key, path)
		}
	default:
		return fmt.Errorf("unrecognised store extension %q", ext)
	}

	fmt.Fprintf(w, "rows: %d\n", b.NumRows())
	fmt.Fprintf(w, "columns: %s\n", strings.Join(b.Names(), ", "))

	if head > 0 {
		n := min(head, b.NumRows())
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return table.WriteCSV(w, b.Take(idx), true)
	}
	return nil
}
