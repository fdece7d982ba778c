package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"fintrack/internal/backend"
	"fintrack/internal/config"
	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/services"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// Command annotations read by the setup hook.
const (
	// annotationSkipApply keeps the hook from applying due recurring
	// expenses before the command runs.
	annotationSkipApply = "fintrack/skip-apply"
	// annotationAllowCorrupt lets the command run on an empty tracker when
	// the stored snapshot cannot be decoded.
	annotationAllowCorrupt = "fintrack/allow-corrupt"
)

// App is the fintrack command line application.
type App struct {
	root    *cobra.Command
	out     io.Writer
	errOut  io.Writer
	factory func(*applog.Logger) backend.Factory
	now     func() time.Time

	cfg     *config.Config
	logger  *applog.Logger
	backend *backend.BackendResult
	tracker *services.Tracker
}

// Option configures an App.
type Option func(*App)

// WithOutput redirects command output and logs.
func WithOutput(out, errOut io.Writer) Option {
	return func(a *App) {
		a.out = out
		a.errOut = errOut
	}
}

// WithNow fixes the clock used for today's date and export file names.
func WithNow(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// NewApp builds the command tree.
func NewApp(version string, opts ...Option) *App {
	a := &App{
		out:    os.Stdout,
		errOut: os.Stderr,
		now:    time.Now,
		factory: func(l *applog.Logger) backend.Factory {
			return backend.NewFactory(l.WithComponent(applog.ComponentBackend).Logger)
		},
	}
	for _, opt := range opts {
		opt(a)
	}

	root := &cobra.Command{
		Use:               "fintrack",
		Short:             "Personal finance tracker",
		Long:              "Track expenses, income, budgets, recurring expenses and savings goals in several currencies.",
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetVersionTemplate(`{{printf "fintrack version: %s\n" .Version}}`)
	root.SetOut(a.out)
	root.SetErr(a.errOut)

	root.PersistentFlags().StringP("config-file", "C", "", "Path to a YAML, TOML or JSON configuration file")
	root.PersistentFlags().StringP("backend", "b", "", "Storage backend: "+strings.Join(backend.GetBackendTypeStrings(), ", "))
	root.PersistentFlags().String("data", "", "Snapshot file used by the file backend")
	root.PersistentFlags().String("db", "", "Database file used by the sqlite backend")
	root.PersistentFlags().BoolP("verbose", "v", false, "Log at the configured level instead of warnings only")

	root.AddCommand(
		a.expenseCmd(),
		a.incomeCmd(),
		a.recurringCmd(),
		a.budgetCmd(),
		a.goalCmd(),
		a.categoryCmd(),
		a.currencyCmd(),
		a.totalCmd(),
		a.summaryCmd(),
		a.exportCmd(),
		a.importCmd(),
		a.serveCmd(),
		a.eventsCmd(),
	)

	a.root = root
	return a
}

// SetArgs replaces the process arguments, for tests.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

// Execute runs the selected command and releases the backend afterwards.
func (a *App) Execute(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	if cerr := a.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}

func (a *App) today() core.Date { return core.DateOf(a.now()) }

// setup loads the configuration, opens the backend and the tracker, and
// brings recurring expenses up to date.
func (a *App) setup(cmd *cobra.Command, _ []string) error {
	LoadEnvFile()

	path, _ := cmd.Flags().GetString("config-file")
	if path == "" {
		path = os.Getenv("FINTRACK_CONFIG")
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		return err
	}
	overrideString(cmd, "backend", &cfg.DataBackend)
	overrideString(cmd, "data", &cfg.SnapshotPath)
	overrideString(cmd, "db", &cfg.SQLiteDBPath)
	if cmd.Flags().Changed("port") {
		cfg.Port, _ = cmd.Flags().GetString("port")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	verbose, _ := cmd.Flags().GetBool("verbose")
	logCfg := *cfg
	if !verbose && cmd.Name() != "serve" {
		logCfg.LogLevel = "warn"
	}
	logger, err := SetupLogger(&logCfg, a.errOut)
	if err != nil {
		return err
	}
	a.logger = logger.WithComponent(applog.ComponentCLI)

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	res, err := a.factory(logger).CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return err
	}
	a.backend = res

	opts := []services.Option{
		services.WithLogger(logger),
		services.WithDefaultCurrency(cfg.Currency()),
		services.WithClock(a.today),
	}
	if res.Publisher != nil {
		opts = append(opts, services.WithPublisher(res.Publisher))
	}
	a.tracker = services.NewTracker(res.Store, opts...)

	if err := a.tracker.Load(cmd.Context()); err != nil {
		if !errors.Is(err, core.ErrInvalidSnapshot) || cmd.Annotations[annotationAllowCorrupt] == "" {
			return err
		}
		a.warning("Stored data is corrupt, starting from an empty tracker: %v", err)
	}

	if cmd.Annotations[annotationSkipApply] != "" {
		return nil
	}
	applied, err := a.tracker.ApplyDue(cmd.Context(), a.today())
	if err != nil {
		return fmt.Errorf("apply recurring expenses: %w", err)
	}
	if len(applied) > 0 {
		a.info("Applied %d recurring expense(s)", len(applied))
	}
	return nil
}

func (a *App) close() error {
	if a.backend == nil || a.backend.Cleanup == nil {
		return nil
	}
	err := a.backend.Cleanup()
	a.backend = nil
	return err
}

func overrideString(cmd *cobra.Command, name string, dst *string) {
	if cmd.Flags().Changed(name) {
		*dst, _ = cmd.Flags().GetString(name)
	}
}

// PrintError reports err the way every fintrack binary does.
func PrintError(w io.Writer, err error) {
	fmt.Fprintln(w, pterm.Error.Sprintf("%v", err))
}
