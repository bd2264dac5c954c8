package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"

	"github.com/meggarmind/residio-email-imports/internal/api"
	"github.com/meggarmind/residio-email-imports/internal/config"
	"github.com/meggarmind/residio-email-imports/internal/fetcher"
	"github.com/meggarmind/residio-email-imports/internal/logger"
	"github.com/meggarmind/residio-email-imports/internal/pipeline"
	"github.com/meggarmind/residio-email-imports/internal/store"
	"github.com/meggarmind/residio-email-imports/internal/writer"
)

const version = "1.0.0"

func main() {
	configFlag := flag.String("config", "", "Path to TOML config file (defaults used if omitted)")
	maildirFlag := flag.String("maildir", "", "Directory of .eml files to import")
	directoryFlag := flag.String("directory", "", "Path to resident directory TOML file")
	outputFlag := flag.String("output", "", "Write per-transaction outcomes CSV to this path")
	reviewFlag := flag.String("review", "", "Write review-queue CSV to this path")
	serveFlag := flag.Bool("serve", false, "Run the HTTP API instead of a one-shot import")
	addrFlag := flag.String("addr", ":8080", "Listen address for --serve")
	versionFlag := flag.Bool("version", false, "Print version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `Residio Email Imports
Imports bank transaction emails (alerts and PDF statements), matches
them to residents, and auto-processes or queues the payments.

Usage:
  residio-email-imports --maildir=mail/ --directory=residents.toml [flags]

Flags:
`)
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, `
Examples:
  # One-shot import with a review queue export
  residio-email-imports --maildir=mail/ --directory=residents.toml --review=review.csv

  # Long-running API for the scheduler
  residio-email-imports --maildir=mail/ --directory=residents.toml --serve --addr=:8080
`)
	}

	flag.Parse()

	if *versionFlag {
		fmt.Printf("residio-email-imports v%s\n", version)
		os.Exit(0)
	}

	log := logger.New()

	cfg := config.Default()
	if *configFlag != "" {
		loaded, err := config.Load(*configFlag)
		if err != nil {
			log.Fatal().Err(err).Msg("loading config")
		}
		cfg = loaded
	}

	if *maildirFlag == "" || *directoryFlag == "" {
		flag.Usage()
		os.Exit(2)
	}

	payments := store.NewPaymentStore()
	p := pipeline.New(
		cfg,
		fetcher.NewMaildir(*maildirFlag, log),
		store.NewFileDirectory(*directoryFlag),
		payments,
		payments,
		log,
	)

	if *serveFlag {
		app := fiber.New(fiber.Config{AppName: "residio-email-imports"})
		h := &api.Handler{Pipeline: p, Log: log}
		h.RegisterRoutes(app)
		log.Info().Str("addr", *addrFlag).Msg("starting API server")
		if err := app.Listen(*addrFlag); err != nil {
			log.Fatal().Err(err).Msg("server stopped")
		}
		return
	}

	result, err := p.Run(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("import run failed")
	}

	if *outputFlag != "" {
		w := &writer.CSVWriter{}
		if err := w.WriteToFile(*outputFlag, result.Outcomes); err != nil {
			log.Fatal().Err(err).Msg("writing outcomes CSV")
		}
		log.Info().Str("path", *outputFlag).Msg("wrote outcomes")
	}
	if *reviewFlag != "" {
		w := &writer.CSVWriter{ReviewOnly: true}
		if err := w.WriteToFile(*reviewFlag, result.Outcomes); err != nil {
			log.Fatal().Err(err).Msg("writing review CSV")
		}
		log.Info().Str("path", *reviewFlag).Msg("wrote review queue")
	}

	out, _ := json.MarshalIndent(result.Summary, "", "  ")
	fmt.Println(string(out))
}
