// Command server exposes a loaded language as a JSON REST API.
//
// Endpoints:
//
//	GET  /api/generate?count=<n>[&sorted=true]
//	POST /api/normalize   body: {"text":"..."}
//	POST /api/evolve      body: {"words":["...", ...]}
//	GET  /api/text?sentences=<n>&width=<cols>
//	GET  /api/language
//	GET  /metrics
package main

import (
	"flag"
	"log/slog"
	"net/http"
	"os"

	"github.com/cours-de-latin/denpa"
	"github.com/cours-de-latin/denpa/config"
)

func main() {
	langPath := flag.String("lang", "", "path to the language file")
	configPath := flag.String("config", "", "config file path (YAML)")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *langPath == "" {
		logger.Error("missing -lang")
		os.Exit(2)
	}
	cfg, err := config.NewLoader(logger).Load(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	logger.Info("loading language", "path", *langPath)
	opts := []denpa.Option{denpa.WithLogger(logger)}
	if cfg.Seed != 0 {
		opts = append(opts, denpa.WithSeed(cfg.Seed))
	}
	lang, err := denpa.Load(*langPath, opts...)
	if err != nil {
		logger.Error("failed to load language\n" + denpa.Diagnostic(err))
		os.Exit(1)
	}
	logger.Info("language loaded", "files", len(lang.Files()), "rules", len(lang.RuleNames()))

	srv := newServer(lang, cfg.Server.MaxCount, logger)
	logger.Info("listening", "addr", cfg.Server.Addr)
	if err := http.ListenAndServe(cfg.Server.Addr, srv.handler(cfg.Server.AllowedOrigins)); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
}
