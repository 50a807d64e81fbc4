package layout

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
)

// =============================================================================
// Layout Serialization API
// =============================================================================

// Marshal converts a layout to indented JSON bytes.
// Nodes are sorted by ID for deterministic output.
func Marshal(l *Layout) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeTo(l, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile writes a layout to a JSON file.
// The file is created with 0644 permissions.
func WriteFile(l *Layout, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeTo(l, f)
}

// Write writes a layout as JSON to an io.Writer.
func Write(l *Layout, w io.Writer) error {
	return writeTo(l, w)
}

// ReadFile reads a JSON file and returns the decoded, validated layout.
func ReadFile(path string) (*Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readFrom(f)
}

// Read decodes a JSON layout from an io.Reader and validates it.
// Use ReadFile for files or pass bytes.NewReader for in-memory data.
func Read(r io.Reader) (*Layout, error) {
	return readFrom(r)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeTo(l *Layout, w io.Writer) error {
	out := Layout{
		Nodes: slices.Clone(l.Nodes),
		Edges: slices.Clone(l.Edges),
	}
	slices.SortFunc(out.Nodes, func(a, b Node) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readFrom(r io.Reader) (*Layout, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if err := Validate(&l); err != nil {
		return nil, err
	}
	return &l, nil
}
