package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/viveknathani/dblineage/config"
	"github.com/viveknathani/dblineage/database"
)

func newSnapshotCmd(root *rootOptions) *cobra.Command {
	var side string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print one side's schema snapshot as YAML",
		Long:  "Print the tables and columns of the source or target database as a snapshot file that can be used instead of a live connection.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, logger, err := root.load("stderr")
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var conn config.Connection
			switch side {
			case "source":
				conn = cfg.Source
			case "target":
				conn = cfg.Target
			default:
				return fmt.Errorf("unknown side %q (use source or target)", side)
			}

			snap, err := loadSnapshot(cmd.Context(), side, conn, root.baseDir(), logger)
			if err != nil {
				return err
			}

			return database.WriteSnapshot(cmd.OutOrStdout(), snap)
		},
	}

	cmd.Flags().StringVar(&side, "side", "source", "Which connection to snapshot: source or target")

	return cmd
}
