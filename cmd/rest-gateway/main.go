package main

import (
	"io"
	"net/http"
	"os"

	"github.com/brizzai/rest-gateway/internal/config"
	"github.com/brizzai/rest-gateway/internal/gateway"
	"github.com/brizzai/rest-gateway/internal/logger"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// exitHTTPError matches curl's exit code for an HTTP error response
const exitHTTPError = 22

func main() {
	os.Exit(Execute(os.Args[1:]))
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string) int {
	return execute(args, os.Stdin, os.Stdout, os.Stderr)
}

func execute(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	rootCmd := newRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetIn(stdin)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	_ = logger.Sync()
	if err == nil {
		return 0
	}

	printer := pterm.Error.WithWriter(stderr)
	if gwErr, ok := gateway.AsGatewayError(err); ok {
		printer.Printfln("HTTP %d %s", gwErr.Status, pterm.Gray(http.StatusText(gwErr.Status)))
		if gwErr.Body != "" {
			pterm.Fprintln(stderr, gwErr.Body)
		}
		return exitHTTPError
	}
	printer.Println(err)
	return 1
}

// cliOptions carries state shared by all subcommands
type cliOptions struct {
	cfg     *config.Config
	metrics bool
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:   "rest-gateway",
		Short: "Send requests to REST endpoints through the gateway client",
		Long: `rest-gateway builds and sends GET/POST/PUT/DELETE requests to downstream REST
endpoints from a path template, query parameters, path variables and headers.
Responses with a 4xx or 5xx status are reported with their status and raw body.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	config.InitFlags(rootCmd.PersistentFlags())
	rootCmd.PersistentFlags().BoolVar(&opts.metrics, "metrics", false, "Print transport metrics to stderr after the request")
	rootCmd.Flags().BoolP("version", "v", false, "Show version information")

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cmd.Flags())
		if err != nil {
			return err
		}
		if err := logger.InitLogger(&cfg.Logging); err != nil {
			return err
		}
		opts.cfg = cfg
		return nil
	}

	rootCmd.RunE = func(cmd *cobra.Command, args []string) error {
		if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
			pterm.Fprintln(cmd.OutOrStdout(), config.GetVersionInfo())
			return nil
		}
		return cmd.Help()
	}

	rootCmd.AddCommand(
		newGetCmd(opts),
		newSendCmd(opts),
		newFormCmd(opts),
		newCallCmd(opts),
		newRunCmd(opts),
		newOperationsCmd(opts),
	)

	return rootCmd
}
