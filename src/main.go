// Package src contains the command line interface of the local media library.
// It is in package src because the project's root main.go imports it.
package src

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
	"github.com/spf13/afero"

	"github.com/ironsmile/localmedia/src/config"
	"github.com/ironsmile/localmedia/src/helpers"
	"github.com/ironsmile/localmedia/src/library"
	"github.com/ironsmile/localmedia/src/scaler"
	"github.com/ironsmile/localmedia/src/scan"
	"github.com/ironsmile/localmedia/src/scanner"
	"github.com/ironsmile/localmedia/src/storage"
	"github.com/ironsmile/localmedia/src/version"
	"github.com/ironsmile/localmedia/src/webserver"
)

// Exit codes of the command line interface.
const (
	exitOK      = 0
	exitFailure = 1
)

const usage = `Usage: localmedia [-config file] [-debug] <command> [arguments]

Commands:
  scan [-limit N] [-force]  update the library with the files in the media directory
  clear                     remove everything from the library
  serve                     serve the library and its images over HTTP
  version                   print version information
`

var errUsage = errors.New("invalid usage")

// app carries the streams the commands talk to the user with.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
}

// Main is the only thing run in the project's root main.go file. For all
// intent and purposes this is the main function.
func Main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr}

	flags := flag.NewFlagSet("localmedia", flag.ContinueOnError)
	flags.SetOutput(stderr)
	flags.Usage = func() { fmt.Fprint(stderr, usage) }

	configPath := flags.String("config", "", "path to the configuration file")
	debug := flags.Bool("debug", false, "log debug messages")

	if err := flags.Parse(args); err != nil {
		return exitFailure
	}
	if flags.NArg() < 1 {
		flags.Usage()
		return exitFailure
	}

	command, cmdArgs := flags.Arg(0), flags.Args()[1:]
	if command == "version" {
		version.Print(stdout)
		return exitOK
	}

	cmd, ok := map[string]func(context.Context, config.Config, []string) error{
		"scan":  a.scan,
		"clear": a.clear,
		"serve": a.serve,
	}[command]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n", command)
		flags.Usage()
		return exitFailure
	}

	if *configPath == "" && !config.UserConfigExists() {
		fmt.Fprintf(stderr, "no configuration file found, create %s or use -config\n",
			config.UserConfigPath())
		return exitFailure
	}

	cfg, err := config.FindAndParse(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "%s\n", err)
		return exitFailure
	}

	if err := helpers.InitLogging(stderr, cfg.LogFile, cfg.Debug || *debug); err != nil {
		fmt.Fprintf(stderr, "setting up logging: %s\n", err)
		return exitFailure
	}

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		log.Error().Err(err).Str("dir", cfg.DataDir).Msg("error creating data directory")
		return exitFailure
	}

	if err := cmd(ctx, cfg, cmdArgs); err != nil {
		if !errors.Is(err, errUsage) {
			log.Error().Err(err).Str("command", command).Msg("command failed")
		}
		return exitFailure
	}

	return exitOK
}

func (a *app) scan(ctx context.Context, cfg config.Config, args []string) error {
	flags := flag.NewFlagSet("scan", flag.ContinueOnError)
	flags.SetOutput(a.stderr)
	limit := flags.Int("limit", 0, "maximum number of tracks to scan")
	force := flags.Bool("force", false, "force rescan of all media files")

	if err := flags.Parse(args); err != nil {
		return errUsage
	}
	if *limit < 0 {
		fmt.Fprintln(a.stderr, "-limit must not be negative")
		return errUsage
	}

	st, err := storage.Open(cfg.DatabasePath(), cfg.QueryTimeout(), cfg.Storage())
	if err != nil {
		return err
	}

	reconciler := scan.New(cfg.Scan(), st, scanner.NewTagScanner(), clockwork.NewRealClock())
	return reconciler.Run(ctx, scan.Options{
		Limit: *limit,
		Force: *force,
	})
}

func (a *app) clear(ctx context.Context, cfg config.Config, _ []string) error {
	fmt.Fprint(a.stdout, "Are you sure you want to clear the library? [y/N] ")

	answer, err := bufio.NewReader(a.stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	if strings.ToLower(strings.TrimSpace(answer)) != "y" {
		fmt.Fprintln(a.stdout, "Clearing library aborted")
		return nil
	}

	st, err := storage.Open(cfg.DatabasePath(), cfg.QueryTimeout(), cfg.Storage())
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(context.WithoutCancel(ctx)); err != nil {
			log.Warn().Err(err).Msg("error closing library")
		}
	}()

	if _, err := st.Load(ctx); err != nil {
		return err
	}

	if !st.Clear(ctx) {
		fmt.Fprintln(a.stdout, "Unable to clear library")
		return errors.New("clearing library failed")
	}

	fmt.Fprintln(a.stdout, "Library successfully cleared")
	return nil
}

func (a *app) serve(ctx context.Context, cfg config.Config, _ []string) error {
	lib, err := library.Open(cfg.DatabasePath(), cfg.QueryTimeout(), cfg.Library())
	if err != nil {
		return err
	}
	defer lib.Close()

	count, err := lib.Load(ctx)
	if err != nil {
		return err
	}
	log.Info().Msgf("serving %d tracks from library", count)

	sclr := scaler.New(ctx)
	defer sclr.Cancel()

	srv := webserver.NewServer(webserver.Config{
		Listen:       cfg.Listen,
		ImageDir:     cfg.ImageDir,
		ImageBaseURI: cfg.ImageBaseURI,
	}, lib, afero.NewOsFs(), sclr)

	return srv.ListenAndServe(ctx)
}
