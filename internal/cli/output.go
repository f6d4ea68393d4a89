package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

const (
	formatJSON = "json"
	formatYAML = "yaml"
)

func formatOutput(v any, format string) (string, error) {
	switch format {
	case formatJSON, "":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", err
		}
		return string(data) + "\n", nil
	case formatYAML, "yml":
		// round-trip through JSON so field names follow the json tags
		b, err := json.Marshal(v)
		if err != nil {
			return "", err
		}
		var generic any
		if err := json.Unmarshal(b, &generic); err != nil {
			return "", err
		}
		data, err := yaml.Marshal(generic)
		if err != nil {
			return "", err
		}
		return string(data), nil
	}
	return "", fmt.Errorf("unknown output format %q (want json or yaml)", format)
}

// print writes v in the selected output format.
func (a *App) print(v any) error {
	return a.printTo(a.streams.Out, v)
}

func (a *App) printTo(w io.Writer, v any) error {
	out, err := formatOutput(v, a.flags.output)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(w, out)
	return err
}
