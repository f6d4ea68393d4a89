package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vormiaphp/vormiaquery/internal/client"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
	"github.com/vormiaphp/vormiaquery/internal/transport"
)

type requestFlags struct {
	data    string
	params  []string
	headers []string
	encrypt bool
	full    bool
}

func (rf *requestFlags) register(cmd *cobra.Command, withData bool) {
	f := cmd.Flags()
	if withData {
		f.StringVarP(&rf.data, "data", "d", "", "JSON body, @file to read a file, @- for stdin")
		f.BoolVar(&rf.encrypt, "encrypt", false, "Encrypt the body with the configured key")
	}
	f.StringArrayVarP(&rf.params, "param", "p", nil, "Query or form parameter key=value, can be repeated")
	f.StringArrayVarP(&rf.headers, "header", "H", nil, `Header "Name: value", can be repeated`)
	f.BoolVar(&rf.full, "full", false, "Print the whole envelope instead of the data")
}

func (a *App) requestCmd() *cobra.Command {
	var rf requestFlags
	cmd := &cobra.Command{
		Use:   "request METHOD ENDPOINT",
		Short: "Send a request with any method",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRequest(cmd, strings.ToUpper(args[0]), args[1], &rf)
		},
	}
	rf.register(cmd, true)
	return cmd
}

// methodCmd builds the get/post/... shortcut for method.
func (a *App) methodCmd(method string, withData bool) *cobra.Command {
	var rf requestFlags
	cmd := &cobra.Command{
		Use:   strings.ToLower(method) + " ENDPOINT",
		Short: fmt.Sprintf("Send a %s request", method),
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runRequest(cmd, method, args[0], &rf)
		},
	}
	rf.register(cmd, withData)
	return cmd
}

func (a *App) runRequest(cmd *cobra.Command, method, endpoint string, rf *requestFlags) error {
	ctx := cmd.Context()
	if err := a.init(ctx, cmd); err != nil {
		return err
	}

	spec := client.Spec{Method: method, Endpoint: endpoint, Encrypt: rf.encrypt}

	params, err := parsePairs(rf.params, "=")
	if err != nil {
		return err
	}
	if len(params) > 0 {
		spec.Params = make(map[string]any, len(params))
		for k, v := range params {
			spec.Params[k] = v
		}
	}

	headers, err := parsePairs(rf.headers, ":")
	if err != nil {
		return err
	}
	if len(headers) > 0 {
		spec.Headers = make(map[string]any, len(headers))
		for k, v := range headers {
			spec.Headers[k] = v
		}
	}

	if rf.data != "" {
		if !transport.HasBody(method) {
			return fmt.Errorf("%s requests cannot carry --data", method)
		}
		if spec.Data, err = a.readData(rf.data); err != nil {
			return err
		}
	}

	env, err := a.client.Request(ctx, spec)
	if err != nil {
		if re, ok := reqerr.As(err); ok && a.flags.verbose {
			_ = a.printTo(a.streams.Err, re.DebugView())
		}
		return err
	}
	return a.render(env, rf.full)
}

// render prints the response data, or the whole envelope with full. A
// --query is evaluated against whichever of the two is printed.
func (a *App) render(env *client.Envelope, full bool) error {
	if !full {
		if a.flags.query == "" {
			return a.print(env.Data)
		}
		v, err := env.Query(a.flags.query)
		if err != nil {
			return err
		}
		a.rememberQuery(a.flags.query)
		return a.print(v)
	}

	if a.flags.query == "" {
		return a.print(env)
	}
	v, err := client.Search(a.flags.query, env)
	if err != nil {
		return err
	}
	a.rememberQuery(a.flags.query)
	return a.print(v)
}

// readData decodes the --data value: inline JSON, @path or @- for stdin.
func (a *App) readData(arg string) (any, error) {
	raw := []byte(arg)
	if src, ok := strings.CutPrefix(arg, "@"); ok {
		var err error
		if src == "-" {
			raw, err = io.ReadAll(a.reader)
		} else {
			raw, err = os.ReadFile(src)
		}
		if err != nil {
			return nil, fmt.Errorf("read data: %w", err)
		}
	}
	v, err := transport.DecodeJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("--data is not valid JSON: %w", err)
	}
	return v, nil
}

// parsePairs splits each "key<sep>value" item. Later keys win.
func parsePairs(items []string, sep string) (map[string]string, error) {
	if len(items) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(items))
	for _, item := range items {
		k, v, ok := strings.Cut(item, sep)
		if !ok && sep != "=" {
			k, v, ok = strings.Cut(item, "=")
		}
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid pair %q, want key%svalue", item, sep)
		}
		out[k] = strings.TrimSpace(v)
	}
	return out, nil
}
