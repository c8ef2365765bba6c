package cmdutils

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

const (
	OutputYAML = "yaml"
	OutputJSON = "json"
)

// Print writes v to w in the given format, YAML when empty. Both formats name
// fields after their json tags, the YAML encoder falls back to them when a
// field has no yaml tag.
func Print(w io.Writer, format string, v any) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case "", OutputYAML:
		data, err = yaml.Marshal(v)
	case OutputJSON:
		data, err = json.MarshalIndent(v, "", "  ")
		data = append(data, '\n')
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	return nil
}

// Output carries the destination and format selected on the command line.
type Output struct {
	W      io.Writer
	Format string
}

func (o *Output) Print(v any) error {
	return Print(o.W, o.Format, v)
}
