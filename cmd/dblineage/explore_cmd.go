package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/viveknathani/dblineage/graph"
	"github.com/viveknathani/dblineage/orchestrator"
	"github.com/viveknathani/dblineage/tui"
)

func newExploreCmd(root *rootOptions) *cobra.Command {
	var logFile string

	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Browse the lineage graph interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load(logFile)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			ctx := cmd.Context()
			inputs, err := loadInputs(ctx, cfg, root.baseDir(), logger)
			if err != nil {
				return err
			}

			bridge := &tui.Bridge{}
			orch := orchestrator.New(logger,
				orchestrator.WithLayout(cfg.Layout.Options()),
				orchestrator.WithOnChange(bridge.OnChange),
				orchestrator.WithNodeActivation(func(role graph.Role, node graph.LineageNode) {
					logger.Info("table opened", zap.String("node", node.ID), zap.String("role", string(role)))
				}),
			)

			program := tea.NewProgram(tui.New(orch),
				tea.WithAltScreen(),
				tea.WithContext(ctx),
				tea.WithInput(cmd.InOrStdin()),
				tea.WithOutput(cmd.OutOrStdout()),
			)
			bridge.Attach(program)

			orch.Update(inputs)

			_, err = program.Run()
			return err
		},
	}

	// The terminal is taken over by the UI, so logs go to a file if anywhere.
	cmd.Flags().StringVar(&logFile, "log-file", "", "Write logs to this file")

	return cmd
}
