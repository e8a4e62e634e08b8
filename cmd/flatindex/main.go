package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/flatindex/pkg/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(os.Stdout, os.Stderr).RunContext(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "flatindex: %v\n", err)
		stop()
		os.Exit(1)
	}
}

// app carries the loaded configuration and output streams into the command
// actions. Results go to stdout and logs to stderr.
type app struct {
	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

func newApp(stdout, stderr io.Writer) *cli.App {
	a := &app{stdout: stdout, stderr: stderr}
	return &cli.App{
		Name:      "flatindex",
		Usage:     "Build and query a persistent inverted index over text files",
		Writer:    stdout,
		ErrWriter: stderr,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to YAML config file",
				EnvVars: []string{"FLATINDEX_CONFIG"},
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
			},
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "Log output format (text, json)",
			},
			&cli.StringFlag{
				Name:  "backend",
				Usage: "Posting store backend (file, badger)",
			},
		},
		Before: a.setup,
		Action: a.root,
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     "Index every regular file under the source directories",
				ArgsUsage: "<store_directory> <source_directory>...",
				Action:    a.index,
			},
			{
				Name:      "search",
				Usage:     "Print the documents containing every term",
				ArgsUsage: "<store_directory> <term>...",
				Action:    a.search,
			},
			{
				Name:      "stats",
				Usage:     "Print the number of terms in the store and recent index runs",
				ArgsUsage: "<store_directory>",
				Action:    a.stats,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "runs",
						Usage: "Number of recent index runs to list when run history is enabled",
						Value: 5,
					},
				},
			},
			{
				Name:      "serve",
				Usage:     "Serve the search API over HTTP",
				ArgsUsage: "<store_directory>",
				Action:    a.serve,
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "port",
						Usage: "HTTP port (overrides server.port)",
					},
				},
			},
		},
		ExitErrHandler: func(*cli.Context, error) {},
	}
}

func (a *app) setup(c *cli.Context) error {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if v := c.String("log-level"); v != "" {
		cfg.Logging.Level = v
	}
	if v := c.String("log-format"); v != "" {
		cfg.Logging.Format = v
	}
	if v := c.String("backend"); v != "" {
		cfg.Store.Backend = v
	}
	logger.SetupWriter(a.stderr, cfg.Logging.Level, cfg.Logging.Format)
	a.cfg = cfg
	return nil
}

// root runs when no known subcommand was given.
func (a *app) root(c *cli.Context) error {
	if !c.Args().Present() {
		return cli.ShowAppHelp(c)
	}
	name := c.Args().First()
	fmt.Fprintf(a.stdout, "Usage: unknown command: %s\n", name)
	if err := cli.ShowAppHelp(c); err != nil {
		return err
	}
	return fmt.Errorf("unknown command %q", name)
}

func usageError(c *cli.Context, msg string) error {
	fmt.Fprintf(c.App.Writer, "Usage: %s %s %s\n", c.App.Name, c.Command.Name, c.Command.ArgsUsage)
	return fmt.Errorf("%s: %s", c.Command.Name, msg)
}
