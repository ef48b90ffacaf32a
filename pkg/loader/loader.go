// Package loader reads and writes tree data files: nested node
// descriptions in JSON or YAML.
package loader

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// Format is a data file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// ErrEmptyData is returned when a data file holds no nodes at all.
var ErrEmptyData = errors.New("data file contains no nodes")

// FormatFor picks the format from a file extension. Unknown extensions
// are treated as JSON.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// LoadFile reads a data file, choosing the decoder by extension.
func LoadFile(path string) ([]model.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening data file: %w", err)
	}
	defer f.Close()

	items, err := Load(f, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return items, nil
}

// Load decodes node descriptions. The document is either a list of items
// or an object with a "nodes" list.
func Load(r io.Reader, format Format) ([]model.Item, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyData
	}

	var items []model.Item
	switch format {
	case FormatYAML:
		items, err = decodeYAML(data)
	default:
		items, err = decodeJSON(data)
	}
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, ErrEmptyData
	}
	for i := range items {
		if err := items[i].Validate(); err != nil {
			return nil, fmt.Errorf("item %d: %w", i, err)
		}
	}
	return items, nil
}

// document is the object form of a data file.
type document struct {
	Nodes []model.Item `json:"nodes" yaml:"nodes"`
}

func decodeJSON(data []byte) ([]model.Item, error) {
	trimmed := bytes.TrimSpace(data)
	if trimmed[0] == '{' {
		var doc document
		if err := json.Unmarshal(trimmed, &doc); err != nil {
			return nil, fmt.Errorf("decoding JSON: %w", err)
		}
		return doc.Nodes, nil
	}
	var items []model.Item
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, fmt.Errorf("decoding JSON: %w", err)
	}
	return items, nil
}

func decodeYAML(data []byte) ([]model.Item, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	if len(root.Content) == 0 {
		return nil, nil
	}
	body := root.Content[0]
	if body.Kind == yaml.MappingNode {
		var doc document
		if err := body.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding YAML: %w", err)
		}
		return doc.Nodes, nil
	}
	var items []model.Item
	if err := body.Decode(&items); err != nil {
		return nil, fmt.Errorf("decoding YAML: %w", err)
	}
	return items, nil
}

// WriteJSON writes items as an indented JSON list.
func WriteJSON(w io.Writer, items []model.Item) error {
	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}

// WriteYAML writes items as a YAML list.
func WriteYAML(w io.Writer, items []model.Item) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(items); err != nil {
		return err
	}
	return enc.Close()
}
