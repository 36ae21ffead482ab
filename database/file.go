package database

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// LoadSnapshotFile reads a snapshot from a .yaml, .yml or .json file.
// JSON is decoded by the YAML parser, which accepts it as a subset.
func LoadSnapshotFile(path string) (*SchemaSnapshot, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
	default:
		return nil, fmt.Errorf("unsupported snapshot file extension %q", filepath.Ext(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	snap, err := DecodeSnapshot(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", path, err)
	}

	return snap, nil
}

// DecodeSnapshot decodes one YAML or JSON snapshot document. Unknown fields
// are rejected so typos in hand-written files surface early.
func DecodeSnapshot(r io.Reader) (*SchemaSnapshot, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var snap SchemaSnapshot
	if err := dec.Decode(&snap); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoTables
		}
		return nil, err
	}

	return &snap, nil
}

// WriteSnapshot encodes snap as YAML.
func WriteSnapshot(w io.Writer, snap *SchemaSnapshot) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	return enc.Close()
}
