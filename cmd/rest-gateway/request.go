package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/brizzai/rest-gateway/internal/catalog"
	"github.com/brizzai/rest-gateway/internal/gateway"
	jsoniter "github.com/json-iterator/go"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
)

// requestFlags are the request-shaping flags shared by the request commands
type requestFlags struct {
	query   []string
	path    []string
	headers []string
	data    string
	fields  []string
	method  string
	selectQ string
}

func (f *requestFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringArrayVarP(&f.query, "query", "q", nil, "Query parameter key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.path, "path", "p", nil, "Path variable key=value (repeatable)")
	cmd.Flags().StringArrayVarP(&f.headers, "header", "H", nil, "Request header key=value (repeatable)")
	cmd.Flags().StringVar(&f.selectQ, "select", "", "gjson path to print from a JSON success body")
}

func (f *requestFlags) bindBody(cmd *cobra.Command, defaultMethod string) {
	cmd.Flags().StringVarP(&f.data, "data", "d", "", "JSON request body, or @file to read it from a file")
	cmd.Flags().StringVarP(&f.method, "request", "X", defaultMethod, "HTTP method")
}

// maps converts the key=value flags. Unset flags stay nil so the gateway omits them.
func (f *requestFlags) maps() (query, pathVars, headers map[string]string, err error) {
	if query, err = parsePairs("query", f.query); err != nil {
		return
	}
	if pathVars, err = parsePairs("path", f.path); err != nil {
		return
	}
	headers, err = parsePairs("header", f.headers)
	return
}

func newGetCmd(opts *cliOptions) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "get <path>",
		Short: "Send a GET request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, pathVars, headers, err := flags.maps()
			if err != nil {
				return err
			}
			return opts.run(cmd, flags.selectQ, func(ctx context.Context, svc gateway.Service, out *[]byte) error {
				return svc.GetRequest(ctx, args[0], query, pathVars, headers, out)
			})
		},
	}
	flags.bind(cmd)
	return cmd
}

func newSendCmd(opts *cliOptions) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "send <path>",
		Short: "Send a request with an optional JSON body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, pathVars, headers, err := flags.maps()
			if err != nil {
				return err
			}
			body, err := readBody(flags.data, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return opts.run(cmd, flags.selectQ, func(ctx context.Context, svc gateway.Service, out *[]byte) error {
				return svc.SendRequest(ctx, args[0], body, flags.method, query, pathVars, headers, out)
			})
		},
	}
	flags.bind(cmd)
	flags.bindBody(cmd, http.MethodPost)
	return cmd
}

func newFormCmd(opts *cliOptions) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "form <path>",
		Short: "Send an urlencoded form request",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query, pathVars, headers, err := flags.maps()
			if err != nil {
				return err
			}
			body, err := formBody(flags, cmd.InOrStdin())
			if err != nil {
				return err
			}
			return opts.run(cmd, flags.selectQ, func(ctx context.Context, svc gateway.Service, out *[]byte) error {
				return svc.SendFormRequest(ctx, args[0], body, flags.method, query, pathVars, headers, out)
			})
		},
	}
	flags.bind(cmd)
	flags.bindBody(cmd, http.MethodPost)
	cmd.Flags().StringArrayVarP(&flags.fields, "field", "F", nil, "Form field key=value (repeatable)")
	cmd.MarkFlagsMutuallyExclusive("data", "field")
	return cmd
}

func newCallCmd(opts *cliOptions) *cobra.Command {
	flags := &requestFlags{}
	cmd := &cobra.Command{
		Use:   "call <operationId>",
		Short: "Call an operation from the configured OpenAPI document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			op, err := ops.Lookup(args[0])
			if err != nil {
				return err
			}
			query, pathVars, headers, err := flags.maps()
			if err != nil {
				return err
			}
			body, err := readBody(flags.data, cmd.InOrStdin())
			if err != nil {
				return err
			}
			req := op.Request(body, query, pathVars, headers)
			return opts.run(cmd, flags.selectQ, func(ctx context.Context, svc gateway.Service, out *[]byte) error {
				return svc.Do(ctx, req, out)
			})
		},
	}
	flags.bind(cmd)
	cmd.Flags().StringVarP(&flags.data, "data", "d", "", "JSON request body, or @file to read it from a file")
	return cmd
}

func newRunCmd(opts *cliOptions) *cobra.Command {
	var selectQ string
	cmd := &cobra.Command{
		Use:   "run <name>",
		Short: "Send a named request from the configured requests file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.cfg.RequestsFile == "" {
				return fmt.Errorf("no requests file configured, pass --requests-file or set GATEWAY_REQUESTS_FILE")
			}
			file, err := catalog.LoadRequestFile(opts.cfg.RequestsFile)
			if err != nil {
				return err
			}
			req, err := file.Lookup(args[0])
			if err != nil {
				return fmt.Errorf("%w (available: %s)", err, strings.Join(file.Names(), ", "))
			}
			return opts.run(cmd, selectQ, func(ctx context.Context, svc gateway.Service, out *[]byte) error {
				return svc.Do(ctx, req, out)
			})
		},
	}
	cmd.Flags().StringVar(&selectQ, "select", "", "gjson path to print from a JSON success body")
	return cmd
}

func newOperationsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "operations",
		Short: "List the operations of the configured OpenAPI document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ops, err := opts.loadCatalog()
			if err != nil {
				return err
			}
			data := [][]string{{"ID", "METHOD", "PATH", "QUERY", "SUMMARY"}}
			for _, op := range ops.List() {
				data = append(data, []string{op.ID, op.Method, op.Path, strings.Join(op.QueryParams, ","), op.Summary})
			}
			return pterm.DefaultTable.
				WithHasHeader().
				WithWriter(cmd.OutOrStdout()).
				WithData(data).
				Render()
		},
	}
}

func (o *cliOptions) loadCatalog() (*catalog.OpenAPICatalog, error) {
	if o.cfg.OpenAPIFile == "" {
		return nil, fmt.Errorf("no OpenAPI document configured, pass --openapi-file or set GATEWAY_OPENAPI_FILE")
	}
	ops := catalog.NewOpenAPICatalog()
	if err := ops.Load(o.cfg.OpenAPIFile); err != nil {
		return nil, err
	}
	return ops, nil
}

// run executes one gateway call and prints the success body to stdout
func (o *cliOptions) run(cmd *cobra.Command, selectQ string, call func(context.Context, gateway.Service, *[]byte) error) error {
	app, err := newApp(o.cfg, o.metrics)
	if err != nil {
		return err
	}
	defer app.printMetrics(cmd.ErrOrStderr())

	var body []byte
	if err := call(cmd.Context(), app.service, &body); err != nil {
		return err
	}
	return writeBody(cmd.OutOrStdout(), body, selectQ)
}

func writeBody(w io.Writer, body []byte, selectQ string) error {
	if selectQ != "" {
		if !gjson.ValidBytes(body) {
			return fmt.Errorf("--select needs a JSON response body")
		}
		result := gjson.GetBytes(body, selectQ)
		if !result.Exists() {
			return fmt.Errorf("nothing matches %q in the response", selectQ)
		}
		_, err := fmt.Fprintln(w, result.String())
		return err
	}

	if len(body) == 0 {
		return nil
	}
	if _, err := w.Write(body); err != nil {
		return err
	}
	if body[len(body)-1] != '\n' {
		_, err := io.WriteString(w, "\n")
		return err
	}
	return nil
}

// parsePairs splits key=value flag values. It returns nil for no values.
func parsePairs(flag string, pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --%s %q, expected key=value", flag, pair)
		}
		out[key] = value
	}
	return out, nil
}

// readBody loads a JSON body from the flag value, "@file" or "@-" for stdin.
// An empty value means no body.
func readBody(data string, stdin io.Reader) (any, error) {
	if data == "" {
		return nil, nil
	}

	raw := []byte(data)
	if strings.HasPrefix(data, "@") {
		var err error
		if name := data[1:]; name == "-" {
			raw, err = io.ReadAll(stdin)
		} else {
			raw, err = os.ReadFile(name)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read body: %w", err)
		}
	}

	if !jsoniter.Valid(raw) {
		return nil, fmt.Errorf("request body is not valid JSON")
	}
	return json.RawMessage(raw), nil
}

func formBody(flags *requestFlags, stdin io.Reader) (any, error) {
	if len(flags.fields) > 0 {
		return parsePairs("field", flags.fields)
	}
	body, err := readBody(flags.data, stdin)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, fmt.Errorf("form requests need --field or --data")
	}
	return body, nil
}
