package cli

import (
	"context"
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/vormiaphp/vormiaquery/internal/config"
	"github.com/vormiaphp/vormiaquery/internal/reqerr"
)

// Execute runs vq with args and returns the process exit code.
func Execute(ctx context.Context, version string, args []string, streams Streams, opts ...AppOption) int {
	app := NewApp(version, streams, opts...)
	defer app.Close()

	root := app.RootCmd()
	root.SetArgs(args)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(streams.Err, "Error: %s\n", describeError(err))
		return 1
	}
	return 0
}

func describeError(err error) string {
	if re, ok := reqerr.As(err); ok {
		return re.UserMessage()
	}
	return err.Error()
}

func (a *App) RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "vq",
		Short: "vq - send requests to a JSON API",
		Long: `vq sends HTTP requests to a JSON API through the vormiaquery client:
bearer-token injection, optional payload encryption and normalized errors.

Examples:
  vq login --email me@example.com
  vq get /api/categories -p page=2 --query 'response[].name'
  vq post /api/posts -d '{"title":"Hello"}'
  vq request PATCH /api/posts/1 -d @post.json -o yaml
  vq whoami`,
		Version:       a.version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.streams.In)
	root.SetOut(a.streams.Out)
	root.SetErr(a.streams.Err)

	pf := root.PersistentFlags()
	pf.StringVarP(&a.flags.configFile, "config", "c", "", "Config file (JSON or YAML)")
	pf.StringVar(&a.flags.envFile, "env-file", ".env", "Dotenv file read before the environment")
	pf.StringVar(&a.flags.baseURL, "base-url", "", "API base URL (overrides API_URL)")
	pf.DurationVar(&a.flags.timeout, "timeout", config.DefaultTimeout, "Request timeout")
	pf.BoolVarP(&a.flags.verbose, "verbose", "v", false, "Log requests to stderr")
	pf.StringVarP(&a.flags.output, "output", "o", formatJSON, "Output format (json/yaml)")
	pf.StringVarP(&a.flags.query, "query", "q", "", "JMESPath expression applied to the response data")
	pf.StringVar(&a.flags.storePath, "store", "", "Path of the local SQLite store or s3://bucket/prefix (default ./.vq/store.db)")

	root.AddCommand(
		a.requestCmd(),
		a.methodCmd(http.MethodGet, false),
		a.methodCmd(http.MethodPost, true),
		a.methodCmd(http.MethodPut, true),
		a.methodCmd(http.MethodPatch, true),
		a.methodCmd(http.MethodDelete, false),
		a.loginCmd(),
		a.logoutCmd(),
		a.whoamiCmd(),
		a.authorizeCmd(),
		a.historyCmd(),
		a.versionCmd(),
	)
	return root
}

func (a *App) versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the vq version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(a.streams.Out, "vq %s\n", a.version)
			return err
		},
	}
}
