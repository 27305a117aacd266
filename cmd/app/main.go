package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"

	_ "github.com/joho/godotenv/autoload"
	"github.com/urfave/cli/v3"

	"github.com/Kkro1s/HongLouMeng/internal"
	pkgconfig "github.com/Kkro1s/HongLouMeng/pkg/config"
)

var version = "dev"

// loadConfig reads the config file over the defaults, then applies flags.
func loadConfig(cmd *cli.Command) (*internal.Config, error) {
	cfg := internal.NewDefaultConfig()
	if err := pkgconfig.LoadIfExists(cmd.String("config"), cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Flags win over the file.
	if cmd.IsSet("corpus") {
		cfg.Corpus.Path = cmd.String("corpus")
	}
	if cmd.IsSet("focal") {
		cfg.Characters.Focal = cmd.String("focal")
	}
	if cmd.IsSet("output") {
		cfg.Output.Path = cmd.String("output")
	}
	if cmd.IsSet("top") {
		cfg.Corpus.SelectTop = int(cmd.Int("top"))
	}
	return cfg, cfg.Validate()
}

func options(cmd *cli.Command) ([]internal.Option, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return []internal.Option{
		internal.WithConfig(cfg),
		internal.WithVersion(version),
	}, nil
}

func serve(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	if err := internal.Run(ctx, opts...); err != nil {
		return fmt.Errorf("app run error: %w", err)
	}
	return nil
}

func analyze(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	opts = append(opts, internal.WithForce(cmd.Bool("force")))
	if err := internal.Analyze(ctx, opts...); err != nil {
		return fmt.Errorf("analyze error: %w", err)
	}
	return nil
}

func mcp(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	return internal.ServeMCP(ctx, opts...)
}

func chapters(ctx context.Context, cmd *cli.Command) error {
	opts, err := options(cmd)
	if err != nil {
		return err
	}
	stats, chosen, err := internal.Chapters(ctx, opts...)
	if err != nil {
		return fmt.Errorf("chapters error: %w", err)
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CHAPTER\tMENTIONS\tLENGTH\tDENSITY")
	for _, s := range stats {
		fmt.Fprintf(tw, "%d\t%d\t%d\t%.2f\n", s.Chapter, s.Mentions, s.Length, s.Density)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Printf("selected %d chapters: %v\n", len(chosen), chosen)
	return nil
}

func main() {
	cmd := &cli.Command{
		Name:    "honglou",
		Usage:   "Mine the social network around a focal character of Dream of the Red Chamber",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "Path to config file",
				DefaultText: "config/config.yaml",
				Value:       "config/config.yaml",
				Sources:     cli.EnvVars("APP_CONFIG_FILE"),
			},
			&cli.StringFlag{
				Name:    "corpus",
				Usage:   "Directory of chapter files",
				Sources: cli.EnvVars("HONGLOU_CORPUS"),
			},
			&cli.StringFlag{
				Name:    "focal",
				Usage:   "Focal character or alias",
				Sources: cli.EnvVars("HONGLOU_FOCAL"),
			},
			&cli.StringFlag{
				Name:    "output",
				Usage:   "Export directory",
				Sources: cli.EnvVars("HONGLOU_OUTPUT"),
			},
			&cli.IntFlag{
				Name:  "top",
				Usage: "Keep the N chapters with the most focal mentions (0 keeps all)",
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Run the HTTP API, re-analysing when the corpus changes",
				Action: serve,
			},
			{
				Name:  "analyze",
				Usage: "Run the pipeline once, store the run and write the exports",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "force",
						Usage: "Run even when the corpus is unchanged",
					},
				},
				Action: analyze,
			},
			{
				Name:   "chapters",
				Usage:  "Rank chapters by focal mentions and write the selection",
				Action: chapters,
			},
			{
				Name:   "mcp",
				Usage:  "Serve stored runs over the MCP stdio transport",
				Action: mcp,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("application error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
