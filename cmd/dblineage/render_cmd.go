package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/viveknathani/dblineage/database"
	"github.com/viveknathani/dblineage/orchestrator"
	"github.com/viveknathani/dblineage/render"
)

type renderOptions struct {
	format       string
	search       string
	schema       string
	disableTypes []string
}

func newRenderCmd(root *rootOptions) *cobra.Command {
	opts := &renderOptions{}

	formats := make([]string, 0, len(render.Formats()))
	for _, f := range render.Formats() {
		formats = append(formats, string(f))
	}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Print the lineage graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRender(cmd, root, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", string(render.FormatText), "Output format: "+strings.Join(formats, ", "))
	cmd.Flags().StringVar(&opts.search, "search", "", "Only show tables whose label contains this text")
	cmd.Flags().StringVar(&opts.schema, "schema", "", "Only show tables in this schema")
	cmd.Flags().StringSliceVar(&opts.disableTypes, "disable-type", nil, "Hide tables of these database types")

	return cmd
}

func runRender(cmd *cobra.Command, root *rootOptions, opts *renderOptions) error {
	format, err := render.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	cfg, logger, err := root.load("stderr")
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()
	inputs, err := loadInputs(ctx, cfg, root.baseDir(), logger)
	if err != nil {
		return err
	}

	layoutOpts := cfg.Layout.Options()
	orch := orchestrator.New(logger, orchestrator.WithLayout(layoutOpts))
	orch.Update(inputs)
	if err := orch.Wait(ctx); err != nil {
		return err
	}
	if status := orch.Status(); status.State == orchestrator.StateError {
		return fmt.Errorf("failed to build lineage: %s", status.Error)
	}

	orch.SetSearch(opts.search)
	orch.SetSchema(opts.schema)
	for _, t := range opts.disableTypes {
		orch.SetDatabaseTypeEnabled(database.ParseType(t), false)
	}

	output, err := render.Render(ctx, orch.View().Graph, format, render.WithLayout(layoutOpts))
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}

	_, err = fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(output, "\n"))
	return err
}
