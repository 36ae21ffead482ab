package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/viveknathani/dblineage/config"
	"github.com/viveknathani/dblineage/database"
	"github.com/viveknathani/dblineage/orchestrator"
)

// loadInputs fetches both snapshots concurrently and combines them with the
// configured selection.
func loadInputs(ctx context.Context, cfg *config.Config, baseDir string, logger *zap.Logger) (orchestrator.Inputs, error) {
	var source, target *database.SchemaSnapshot

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		snap, err := loadSnapshot(ctx, "source", cfg.Source, baseDir, logger)
		source = snap
		return err
	})
	g.Go(func() error {
		snap, err := loadSnapshot(ctx, "target", cfg.Target, baseDir, logger)
		target = snap
		return err
	})
	if err := g.Wait(); err != nil {
		return orchestrator.Inputs{}, err
	}

	stamp, err := cfg.Timestamp()
	if err != nil {
		return orchestrator.Inputs{}, err
	}

	return orchestrator.Inputs{
		Enabled:     !cfg.Disabled,
		Source:      source,
		Target:      target,
		Selected:    cfg.Selected,
		LastUpdated: stamp,
	}, nil
}

// loadSnapshot inspects the live database when a DSN is set and reads the
// snapshot file otherwise. A configured schema replaces the snapshot's
// default schema.
func loadSnapshot(ctx context.Context, side string, conn config.Connection, baseDir string, logger *zap.Logger) (*database.SchemaSnapshot, error) {
	start := time.Now()

	var (
		snap   *database.SchemaSnapshot
		err    error
		origin string
	)
	if conn.DSN != "" {
		origin = "database"
		snap, err = inspect(ctx, conn)
	} else {
		origin = resolvePath(baseDir, conn.Snapshot)
		snap, err = database.LoadSnapshotFile(origin)
		if err == nil && conn.Schema != "" {
			snap.Location.Schema = conn.Schema
		}
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", side, err)
	}

	logger.Info("snapshot loaded",
		zap.String("side", side),
		zap.String("from", origin),
		zap.String("type", string(snap.DatabaseType())),
		zap.Int("tables", len(snap.Tables)),
		zap.Duration("took", time.Since(start)),
	)
	return snap, nil
}

func inspect(ctx context.Context, conn config.Connection) (*database.SchemaSnapshot, error) {
	db, err := database.Open(ctx, database.ParseType(conn.Type), conn.DSN)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	return database.InspectSnapshot(ctx, db, conn.Schema)
}

func resolvePath(baseDir, path string) string {
	if baseDir == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
