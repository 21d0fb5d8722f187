package main

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	resync "github.com/goliatone/go-resync"
	"github.com/goliatone/go-resync/pkg/activity"
	"github.com/goliatone/go-resync/pkg/format"
	"github.com/goliatone/go-resync/pkg/metrics"
	"github.com/goliatone/go-resync/pkg/resource"
	"github.com/goliatone/go-resync/pkg/transport"
)

// cli holds one invocation's configuration and output streams.
type cli struct {
	v      *viper.Viper
	root   *cobra.Command
	out    io.Writer
	errOut io.Writer
	logger *slog.Logger
}

func newCLI(out, errOut io.Writer) *cli {
	c := &cli{
		v:      viper.New(),
		out:    out,
		errOut: errOut,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	c.setupConfig()
	c.root = &cobra.Command{
		Use:   "resync",
		Short: "Keep a local view of a REST collection in sync",
		Long: `resync lists, creates and watches records of a REST collection such as
employees or holdings, and checks the service's health.

Configuration sources (in order of precedence):
  1. Command line flags
  2. Environment variables (RESYNC_*)
  3. Configuration file (RESYNC_CONFIG, else ./resync.yaml or ~/.resync/resync.yaml)
  4. Defaults

Examples:
  resync --base-url http://localhost:8000 list
  resync --resource holdings create --set ticker=ACME --set amount=10 --set price=2.5
  RESYNC_RESOURCE=holdings resync watch --interval 5s`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := c.v.BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			logger, err := newLogger(c.errOut, c.v.GetString("log-level"), c.v.GetString("log-format"))
			if err != nil {
				return newConfigError("configure logging", err.Error())
			}
			c.logger = logger
			return nil
		},
	}
	c.root.SetOut(out)
	c.root.SetErr(errOut)

	flags := c.root.PersistentFlags()
	flags.String("base-url", "", "Service base URL (default "+transport.DefaultOrigin+")")
	flags.StringP("resource", "r", "employees", "Built-in resource: employees|holdings")
	flags.String("definition", "", "Path to a YAML resource definition (overrides --resource)")
	flags.String("engine", "expr", "Expression engine for derived fields and rules: expr|cel|js")
	flags.String("locale", "en-US", "Locale for numbers and currency")
	flags.Duration("timeout", 30*time.Second, "HTTP timeout per request")
	flags.String("log-level", "warn", "Log level: debug|info|warn|error")
	flags.String("log-format", "text", "Log format: text|json")

	c.root.AddCommand(
		c.listCommand(),
		c.createCommand(),
		c.healthCommand(),
		c.watchCommand(),
		c.schemaCommand(),
	)
	return c
}

func (c *cli) setupConfig() {
	if file := os.Getenv("RESYNC_CONFIG"); file != "" {
		c.v.SetConfigFile(file)
	} else {
		c.v.SetConfigName("resync")
		c.v.SetConfigType("yaml")
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME/.resync")
	}
	c.v.SetEnvPrefix("RESYNC")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()
	_ = c.v.ReadInConfig()
}

func (c *cli) definition() (resource.Definition, error) {
	if path := c.v.GetString("definition"); path != "" {
		def, err := resource.LoadDefinition(path)
		if err != nil {
			return resource.Definition{}, &cliError{Operation: "load definition", Cause: err.Error(), Underlying: err}
		}
		return def, nil
	}
	name := c.v.GetString("resource")
	def, ok := resource.Builtin(name)
	if !ok {
		return resource.Definition{}, newConfigError("select resource",
			fmt.Sprintf("unknown resource %q", name),
			"use --resource employees or --resource holdings",
			"or describe the collection in a YAML file and pass --definition")
	}
	return def, nil
}

func (c *cli) evaluator() (resync.Evaluator, error) {
	switch engine := strings.ToLower(c.v.GetString("engine")); engine {
	case "", "expr":
		return resync.NewExprEvaluator(resync.ExprWithFunctionRegistry(resync.NewDefaultFunctionRegistry())), nil
	case "cel":
		return resync.NewCELEvaluator(resync.CELWithFunctionRegistry(resync.NewDefaultFunctionRegistry())), nil
	case "js":
		if !resync.JSEvaluatorAvailable() {
			return nil, newConfigError("select engine", "js engine not compiled in", "rebuild with -tags js_eval")
		}
		return resync.NewJSEvaluator(resync.JSWithFunctionRegistry(resync.NewDefaultFunctionRegistry())), nil
	default:
		return nil, newConfigError("select engine", fmt.Sprintf("unknown engine %q", engine), "use expr, cel or js")
	}
}

func (c *cli) formatter() (*format.Formatter, error) {
	tag, err := format.ParseLocale(c.v.GetString("locale"))
	if err != nil {
		return nil, newConfigError("select locale", err.Error())
	}
	return format.New(format.WithLocale(tag)), nil
}

// controller wires transport, resource client and controller from the
// resolved configuration. A non-nil reg receives transport and lifecycle
// metrics.
func (c *cli) controller(reg prometheus.Registerer, extra ...resync.Option) (*resync.Controller, error) {
	def, err := c.definition()
	if err != nil {
		return nil, err
	}
	evaluator, err := c.evaluator()
	if err != nil {
		return nil, err
	}

	trOpts := []transport.Option{
		transport.WithLogger(c.logger),
		transport.WithHTTPClient(newHTTPClient(c.v.GetDuration("timeout"))),
	}
	opts := []resync.Option{
		resync.WithEvaluator(evaluator),
		resync.WithLogger(c.logger),
		resync.WithEvaluatorLogger(resync.SlogEvaluatorLogger(c.logger)),
	}
	if reg != nil {
		tm, err := metrics.NewTransportMetrics(reg, "resync")
		if err != nil {
			return nil, err
		}
		am, err := metrics.NewActivityMetrics(reg, "resync")
		if err != nil {
			return nil, err
		}
		trOpts = append(trOpts, transport.WithObserver(tm))
		opts = append(opts, resync.WithActivityHooks(activityHooks(am)))
	}

	tr, err := transport.New(transport.ResolveBaseURL(c.v.GetString("base-url"), ""), trOpts...)
	if err != nil {
		return nil, err
	}
	return resync.NewController(resource.NewClient(tr, def), def, append(opts, extra...)...)
}

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{Timeout: timeout}
}

func activityHooks(m *metrics.ActivityMetrics) activity.Hooks {
	return activity.Hooks{m}
}
