package main

import (
	"errors"
	"os"

	"github.com/Venancio-01/qingshan-map/internal/config"
	"github.com/Venancio-01/qingshan-map/internal/logger"
	"github.com/Venancio-01/qingshan-map/internal/processor"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger logger.Logger `group:"Logger options"`

	ConfigFile string   `short:"c" long:"config"     env:"CONFIG_FILE" description:"Path to configuration file, built-in defaults are used when the default file is missing" default:"config.yaml"`
	BaseDir    string   `short:"b" long:"base-dir"   env:"BASE_DIR"    description:"Base directory for relative input and output paths"`
	Limit      []string `short:"l" long:"limit"      env:"LIMIT_NAMES" description:"Limit processing to specific category names"`
	Mode       string   `short:"m" long:"mode"       env:"MODE"        description:"Override processing mode of all categories" choice:"merge" choice:"mirror"`
	OnError    string   `short:"e" long:"on-error"   env:"ON_ERROR"    description:"Override per-file error policy" choice:"continue" choice:"abort"`
	TargetCRS  string   `short:"t" long:"target-crs" env:"TARGET_CRS"  description:"Override target reference system (EPSG code, PROJ string or \"none\")"`
	Precision  int      `short:"p" long:"precision"  env:"PRECISION"   description:"Significant digits kept when minifying"`
	Minify     bool     `short:"M" long:"minify"     description:"Minify GeoJSON output"`
	Pretty     bool     `short:"P" long:"pretty"     description:"Indent GeoJSON output"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	explicitConfig := parser.FindOptionByLongName("config").IsSet()
	cfg, fallback, err := config.LoadOrDefault(opts.ConfigFile, !explicitConfig)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if fallback {
		log.Debug().Str("config", opts.ConfigFile).Msg("Configuration file not found, using built-in defaults")
	}

	applyOverrides(cfg, opts)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Filter categories if limit is set
	categories := cfg.Categories
	if len(opts.Limit) > 0 {
		categories = make([]config.Category, 0, len(opts.Limit))
		seen := make(map[string]bool)

		for _, name := range opts.Limit {
			if seen[name] {
				continue
			}
			seen[name] = true

			if cat, ok := cfg.Find(name); ok {
				categories = append(categories, cat)
			} else {
				log.Error().
					Str("name", name).
					Msg("Category specified in --limit not found in configuration")
			}
		}
	}

	log.Info().
		Int("categories_total", len(cfg.Categories)).
		Int("categories_queued", len(categories)).
		Msg("Starting converter")

	failed := 0
	for _, cat := range categories {
		sum, err := processor.ProcessCategory(cfg, cat)
		if err != nil {
			failed++
			if errors.Is(err, processor.ErrAborted) {
				log.Error().Err(err).Str("category", cat.Name).Msg("Category aborted")
			} else {
				log.Error().Err(err).Str("category", cat.Name).Msg("Failed to process category")
			}
			continue
		}

		log.Info().
			Str("category", sum.Category).
			Int("found", sum.Found).
			Int("converted", sum.Converted).
			Int("failed", sum.Failed).
			Int("features", sum.Features).
			Strs("outputs", sum.Outputs).
			Msg("Category finished")
	}

	if failed > 0 {
		log.Error().Int("failed", failed).Msg("Converter finished with errors")
		os.Exit(1)
	}

	log.Info().Msg("Converter finished successfully")
}

// applyOverrides copies command line overrides into every category.
func applyOverrides(cfg *config.Config, opts Options) {
	if opts.BaseDir != "" {
		cfg.BaseDir = opts.BaseDir
	}
	if opts.Mode != "" {
		cfg.OverrideMode(config.Mode(opts.Mode))
	}

	for i := range cfg.Categories {
		cat := &cfg.Categories[i]
		if opts.OnError != "" {
			cat.OnError = config.ErrorPolicy(opts.OnError)
		}
		if opts.TargetCRS != "" {
			cat.TargetCRS = opts.TargetCRS
		}
		if opts.Precision > 0 {
			cat.Precision = opts.Precision
		}
		if opts.Minify {
			cat.Minify = true
		}
		if opts.Pretty {
			cat.Pretty = true
		}
	}
}
