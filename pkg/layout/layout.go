package layout

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// =============================================================================
// Layout Serialization API
// =============================================================================

// MarshalLayout serializes a Layout to pretty-printed JSON bytes.
func MarshalLayout(l Layout) ([]byte, error) {
	return json.MarshalIndent(l, "", "  ")
}

// UnmarshalLayout deserializes JSON bytes into a Layout.
// Validates that required fields are present for the tool.
func UnmarshalLayout(data []byte) (Layout, error) {
	var l Layout
	if err := json.Unmarshal(data, &l); err != nil {
		return Layout{}, fmt.Errorf("unmarshal layout: %w", err)
	}
	return validateLayout(l)
}

// WriteLayout writes a Layout as JSON to an io.Writer.
// Use MarshalLayout for in-memory serialization or WriteLayoutFile for files.
func WriteLayout(l Layout, w io.Writer) error {
	return writeLayoutTo(l, w)
}

// ReadLayout decodes a JSON layout from an io.Reader.
// Use ReadLayoutFile for files or pass bytes.NewReader for in-memory data.
func ReadLayout(r io.Reader) (Layout, error) {
	return readLayoutFrom(r)
}

// WriteLayoutFile writes a Layout to a JSON file.
// The file is created with 0644 permissions.
func WriteLayoutFile(l Layout, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	return writeLayoutTo(l, f)
}

// ReadLayoutFile reads a Layout from a JSON file.
func ReadLayoutFile(path string) (Layout, error) {
	f, err := os.Open(path)
	if err != nil {
		return Layout{}, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return readLayoutFrom(f)
}

// Encode serializes a Layout in the given export format. FormatJSON is the
// native layout format; FormatGeoJSON produces a FeatureCollection. An empty
// format means FormatJSON. Pretty selects indented output.
func Encode(l Layout, format string, pretty bool) ([]byte, error) {
	var v any
	switch format {
	case FormatJSON, "":
		v = l
	case FormatGeoJSON:
		v = ToGeoJSON(l)
	default:
		return nil, fmt.Errorf("unknown export format %q", format)
	}
	if pretty {
		return json.MarshalIndent(v, "", "  ")
	}
	return json.Marshal(v)
}

// =============================================================================
// Internal Implementation
// =============================================================================

func writeLayoutTo(l Layout, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return nil
}

func readLayoutFrom(r io.Reader) (Layout, error) {
	var l Layout
	if err := json.NewDecoder(r).Decode(&l); err != nil {
		return Layout{}, fmt.Errorf("decode: %w", err)
	}
	return validateLayout(l)
}

func validateLayout(l Layout) (Layout, error) {
	if l.Tool == "" {
		l.Tool = ToolCircles
	}
	switch l.Tool {
	case ToolCircles, ToolNested:
		if len(l.Circles) == 0 {
			return Layout{}, fmt.Errorf("%s layout must contain circles", l.Tool)
		}
	case ToolTreemap:
		if len(l.Rects) == 0 {
			return Layout{}, fmt.Errorf("treemap layout must contain rects")
		}
	default:
		return Layout{}, fmt.Errorf("unknown layout tool %q", l.Tool)
	}
	return l, nil
}
