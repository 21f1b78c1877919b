// ABOUTME: CLI entrypoint for sitekit with build and serve subcommands.
// ABOUTME: Wires the manifest and env config into the site builder and the dev/admin server, with signal handling.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/2389-research/sitekit/config"
	"github.com/2389-research/sitekit/site"
	"github.com/2389-research/sitekit/web"
)

var version = "dev"

// buildConfig holds configuration for the "sitekit build" subcommand.
type buildConfig struct {
	projectDir string
	output     string
	markdown   bool
	quiet      bool
}

// serveConfig holds configuration for the "sitekit serve" subcommand.
type serveConfig struct {
	root     string
	envFile  string
	appEntry string
	format   string
	dataFile string
	port     int
}

func main() {
	args := os.Args[1:]

	if cfg, ok := parseBuildArgs(args); ok {
		os.Exit(runBuild(cfg, os.Stdout, os.Stderr))
	}
	if cfg, ok := parseServeArgs(args); ok {
		os.Exit(runServe(cfg))
	}

	os.Exit(runTop(args, os.Stdout, os.Stderr))
}

// runTop handles everything that is not a subcommand: help, -version and
// unknown commands.
func runTop(args []string, stdout, stderr io.Writer) int {
	var showVersion bool

	fs := flag.NewFlagSet("sitekit", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&showVersion, "version", false, "Print version and exit")
	fs.Usage = func() {
		printHelp(stderr, version)
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	if showVersion {
		fmt.Fprintf(stdout, "sitekit %s\n", version)
		return 0
	}

	switch fs.Arg(0) {
	case "", "help":
		printHelp(stdout, version)
		return 0
	default:
		fmt.Fprintf(stderr, "error: unknown command %q\n\n", fs.Arg(0))
		printHelp(stderr, version)
		return 2
	}
}

// parseBuildArgs checks whether args starts with the "build" subcommand and,
// if so, parses build-specific flags. Returns the config and true if "build"
// was detected, or a zero value and false otherwise.
func parseBuildArgs(args []string) (buildConfig, bool) {
	if len(args) == 0 || args[0] != "build" {
		return buildConfig{}, false
	}

	var cfg buildConfig
	fs := flag.NewFlagSet("sitekit build", flag.ContinueOnError)
	fs.StringVar(&cfg.projectDir, "dir", ".", "Project root to build (default: current directory)")
	fs.StringVar(&cfg.output, "output", "", "Output directory, overriding sitekit.yaml (default: dist)")
	fs.BoolVar(&cfg.markdown, "markdown", false, "Render .md files to HTML pages")
	fs.BoolVar(&cfg.quiet, "quiet", false, "Suppress the build summary")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sitekit build [flags]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Mirror the project into the output directory, injecting the shared partial into every page.")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	return cfg, true
}

// parseServeArgs checks whether args starts with the "serve" subcommand and,
// if so, parses serve-specific flags.
func parseServeArgs(args []string) (serveConfig, bool) {
	if len(args) == 0 || args[0] != "serve" {
		return serveConfig{}, false
	}

	var cfg serveConfig
	fs := flag.NewFlagSet("sitekit serve", flag.ContinueOnError)
	fs.StringVar(&cfg.root, "root", config.DefaultOutput, "Directory to serve")
	fs.StringVar(&cfg.envFile, "env-file", ".env", "Env file with ADMIN_PASSWORD, SESSION_TIMEOUT, PORT")
	fs.StringVar(&cfg.appEntry, "app-entry", "", "Client app entry file; shows build instructions while -root is missing")
	fs.StringVar(&cfg.format, "format", string(web.FormatJSON), "Save-data format: json or js")
	fs.StringVar(&cfg.dataFile, "data-file", "", "Data file relative to -root (default: data.json, or assets/js/data.js for js)")
	fs.IntVar(&cfg.port, "port", 0, "Port to listen on, overriding PORT")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: sitekit serve [flags]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Serve the site locally with the admin login and save-data endpoints.")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Flags:")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	return cfg, true
}

// buildOptions turns the manifest and flags into builder options.
func buildOptions(cfg buildConfig, m config.Manifest) site.BuildOptions {
	output := m.Output
	if cfg.output != "" {
		output = cfg.output
	}
	if !filepath.IsAbs(output) {
		output = filepath.Join(cfg.projectDir, output)
	}

	return site.BuildOptions{
		SourceRoot:  cfg.projectDir,
		OutputRoot:  output,
		PartialPath: m.Partial,
		Placeholder: m.Placeholder,
		ExcludeDirs: m.Exclude,
		Markdown:    m.Markdown || cfg.markdown,
	}
}

// runBuild executes one site build. Returns 0 on success, 1 on any error.
func runBuild(cfg buildConfig, stdout, stderr io.Writer) int {
	manifest, err := config.LoadManifest(cfg.projectDir)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	opts := buildOptions(cfg, manifest)
	builder, err := site.NewBuilder(opts)
	if err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext(stderr)
	defer cancel()

	report, err := builder.Build(ctx)
	if err != nil {
		fmt.Fprintln(stderr, renderFailure(err))
		return 1
	}

	if !cfg.quiet {
		fmt.Fprintln(stdout, renderSummary(report, opts.OutputRoot))
	}
	return 0
}

// runServe starts the dev/admin server and blocks until interrupted.
func runServe(cfg serveConfig) int {
	conf, err := config.Load(cfg.envFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	if cfg.port != 0 {
		withPort := *conf
		withPort.Port = cfg.port
		conf = &withPort
	}
	if !conf.LoginEnabled() {
		fmt.Fprintf(os.Stderr, "warning: %s is not set; admin login will reject every password\n", config.KeyAdminPassword)
	}

	server, err := web.NewServer(web.ServerConfig{
		Config:   conf,
		Root:     cfg.root,
		AppEntry: cfg.appEntry,
		Format:   web.DataFormat(cfg.format),
		DataFile: cfg.dataFile,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}

	ctx, cancel := signalContext(os.Stderr)
	defer cancel()

	fmt.Fprintf(os.Stderr, "listening on http://%s\n", conf.Addr())
	if err := server.ListenAndServe(ctx, conf.Addr()); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// signalContext returns a context canceled on SIGINT or SIGTERM.
func signalContext(stderr io.Writer) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			fmt.Fprintln(stderr, "\nInterrupted, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigChan)
	}()

	return ctx, cancel
}
