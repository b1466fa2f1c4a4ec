// Package commands implements the CLI commands for hginstall.
package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/watchthelight/hginstall/internal/binary"
	"github.com/watchthelight/hginstall/internal/config"
	"github.com/watchthelight/hginstall/internal/errors"
	"github.com/watchthelight/hginstall/internal/logging"
	"github.com/watchthelight/hginstall/internal/platform"
	"github.com/watchthelight/hginstall/internal/release"
)

// Version is set at build time via ldflags.
var Version = "0.1.0"

// app holds the state shared by all commands of one invocation.
type app struct {
	v   *viper.Viper
	cfg *config.Config

	verbosity  int
	quiet      bool
	logFormat  string
	configPath string
	allowHTTP  bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{v: config.New("hginstall/" + Version)}

	rootCmd := &cobra.Command{
		Use:   "hginstall",
		Short: "Install verified hg release binaries",
		Long: `hginstall downloads the prebuilt hg binary for this machine, checks it
against the SHA-256 pinned in the release table, installs it and runs it once
to confirm it reports the requested version.

Nothing is installed unless the checksum matches.`,
		Example: `  # Install the newest release into ~/.local/bin
  hginstall install

  # Install a specific version somewhere else
  hginstall install 1.4.0 --dir /usr/local/bin

  # Show what would be downloaded for another platform
  hginstall resolve 1.4.0 --platform darwin/arm64`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.setupLogging(cmd); err != nil {
				return err
			}
			if cmd.Name() == "version" || cmd.Name() == "help" {
				return nil
			}
			return a.loadConfig(cmd.Context())
		},
		Run: func(cmd *cobra.Command, args []string) {
			_ = cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.CountVarP(&a.verbosity, "verbose", "v", "increase verbosity level (e.g., -v, -vv)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "suppress non-error output")
	flags.StringVar(&a.logFormat, "log-format", "text", "log format: text, json")
	flags.StringVar(&a.configPath, "config", "", "config file (default: ./config.yaml or $XDG_CONFIG_HOME/hginstall/config.yaml)")
	flags.String("manifest", "", "Lua release manifest to use instead of the built-in one")
	flags.BoolVar(&a.allowHTTP, "allow-http", false, "accept http:// URLs in a release manifest")
	_ = flags.MarkHidden("allow-http")
	_ = a.v.BindPFlag(config.KeyManifest, flags.Lookup("manifest"))

	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return usageError(cmd, err)
	})

	rootCmd.Version = Version
	rootCmd.SetVersionTemplate("hginstall version {{.Version}}\n")

	rootCmd.AddCommand(
		a.newInstallCmd(),
		a.newResolveCmd(),
		a.newPlatformCmd(),
		a.newVersionsCmd(),
		newVersionCmd(),
	)

	return rootCmd
}

// Run executes the CLI and returns the process exit code.
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if err != nil {
		printError(stderr, err)
	}
	return errors.ExitCodeFor(err)
}

// usageError marks a flag or argument problem as a user error.
func usageError(cmd *cobra.Command, err error) error {
	return errors.NewUserError(err, fmt.Sprintf("Run '%s --help' for usage", cmd.CommandPath()))
}

// checkArgs wraps a cobra argument validator so that its failures exit as
// user errors.
func checkArgs(validate cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := validate(cmd, args); err != nil {
			return usageError(cmd, err)
		}
		return nil
	}
}

// setupLogging configures the logger based on verbosity flags.
func (a *app) setupLogging(cmd *cobra.Command) error {
	if a.quiet && a.verbosity > 0 {
		return errors.NewUserError(errors.New("cannot use --quiet and --verbose together"), "")
	}

	format, ok := logging.ParseFormat(a.logFormat)
	if !ok {
		return errors.NewUserError(
			errors.Newf("invalid log format %q", a.logFormat),
			"Use --log-format text or --log-format json")
	}

	level := logging.LevelFromVerbosity(a.verbosity)
	if a.quiet {
		level = slog.LevelError
	}

	logger := logging.New(logging.Config{
		Level:  level,
		Format: format,
		Output: cmd.ErrOrStderr(),
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cmd.SetContext(logging.NewContext(ctx, logger))
	return nil
}

func (a *app) loadConfig(ctx context.Context) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return errors.NewUserError(err, "Check the config file and HGINSTALL_* environment variables")
	}
	a.cfg = cfg
	logging.FromContext(ctx).Debug("configuration loaded",
		"config_file", a.v.ConfigFileUsed(),
		"install_dir", cfg.InstallDir,
		"manifest", cfg.Manifest)
	return nil
}

// loadTable returns the configured release table, or the built-in one.
func (a *app) loadTable(ctx context.Context) (*release.Table, error) {
	if a.cfg.Manifest == "" {
		table, err := release.Default(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "built-in release table")
		}
		return table, nil
	}

	table, err := release.LoadFile(ctx, a.cfg.Manifest, release.LoadOptions{AllowInsecure: a.allowHTTP})
	if err != nil {
		return nil, errors.NewUserError(
			errors.Wrapf(err, "load manifest %s", a.cfg.Manifest),
			"Fix the manifest or drop --manifest to use the built-in release table")
	}
	logging.FromContext(ctx).Info("using release manifest", "path", a.cfg.Manifest)
	return table, nil
}

// newManager builds a binary.Manager from the loaded configuration. A nil
// detector means the host is detected.
func (a *app) newManager(ctx context.Context, detector platform.Detector) (*binary.Manager, error) {
	table, err := a.loadTable(ctx)
	if err != nil {
		return nil, err
	}

	m, err := binary.NewManager(binary.Config{
		Table:           table,
		Detector:        detector,
		InstallDir:      a.cfg.InstallDir,
		UserAgent:       a.cfg.UserAgent,
		FetchTimeout:    a.cfg.FetchTimeout,
		SmokeTimeout:    a.cfg.SmokeTimeout,
		KeyringPath:     a.cfg.Keyring,
		TrustedRootPath: a.cfg.TrustedRoot,
		Logger:          logging.FromContext(ctx),
	})
	if err != nil {
		return nil, errors.NewUserError(err, "Check the keyring and trusted_root settings")
	}
	return m, nil
}

// parsePlatform turns a --platform value into a Platform; empty means detect.
func parsePlatform(s string) (platform.Platform, error) {
	if s == "" {
		return platform.Platform{}, nil
	}
	return platform.Parse(s)
}

// printf writes to the command's stdout unless --quiet is set.
func (a *app) printf(cmd *cobra.Command, format string, args ...any) {
	if a.quiet {
		return
	}
	fmt.Fprintf(cmd.OutOrStdout(), format, args...)
}

// printError reports err on w with a hint derived from its kind.
func printError(w io.Writer, err error) {
	red := color.New(color.FgRed, color.Bold)
	if logging.SupportsColor(w) {
		red.EnableColor()
	} else {
		red.DisableColor()
	}

	red.Fprint(w, "Error: ")
	fmt.Fprintln(w, err.Error())

	var exitErr *errors.ExitError
	if errors.As(err, &exitErr) && exitErr.Suggestion != "" {
		fmt.Fprintf(w, "  %s\n", exitErr.Suggestion)
		return
	}

	if hint := hintFor(errors.KindOf(err)); hint != "" {
		fmt.Fprintf(w, "  %s\n", hint)
	}
}

func hintFor(kind errors.Kind) string {
	switch kind {
	case errors.KindChecksumMismatch:
		return "The download does not match the pinned release. It may have been tampered with; nothing was installed."
	case errors.KindUnsupportedPlatform:
		return "Run 'hginstall versions' to see the platforms each release ships for."
	case errors.KindUnknownVersion:
		return "Run 'hginstall versions' to list known releases."
	case errors.KindNotFound:
		return "The release asset is missing upstream."
	case errors.KindNetwork:
		return "Check your network connection and try again."
	case errors.KindVerificationFailed:
		return "The binary was installed but did not report the expected version."
	default:
		return ""
	}
}
