package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"sentinel/config"
	"sentinel/internal/adapters"
	"sentinel/internal/archive"
	"sentinel/internal/collector"
	"sentinel/internal/engine"
	"sentinel/internal/logger"
	"sentinel/internal/notify"
	"sentinel/internal/report"
	"sentinel/internal/rules"
	"sentinel/internal/score"
	"sentinel/internal/server"
	"sentinel/internal/session"
)

func findConfigFile(configArg string) string {
	if configArg != "" {
		path := configArg
		if _, err := os.Stat(path); err == nil {
			return path
		}
		log.Printf("Warning: config file not found at %s, trying default locations", path)
	}

	if _, err := os.Stat("sentinel.yml"); err == nil {
		return "sentinel.yml"
	}

	exePath, err := os.Executable()
	if err == nil {
		exeDir := filepath.Dir(exePath)
		path := filepath.Join(exeDir, "sentinel.yml")
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "sentinel.yml"
}

func applyDefaults(cfg *config.Config) {
	if cfg.Sentinel.Server.Addr == "" {
		cfg.Sentinel.Server.Addr = ":8080"
	}
	if cfg.Sentinel.Server.ShutdownTimeout <= 0 {
		cfg.Sentinel.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Sentinel.Server.StreamBuffer <= 0 {
		cfg.Sentinel.Server.StreamBuffer = 64
	}

	if cfg.Sentinel.Sessions.Retention <= 0 {
		cfg.Sentinel.Sessions.Retention = time.Hour
	}
	if cfg.Sentinel.Sessions.SweepInterval <= 0 {
		cfg.Sentinel.Sessions.SweepInterval = 5 * time.Minute
	}

	if cfg.Sentinel.Adapters.Timeout <= 0 {
		cfg.Sentinel.Adapters.Timeout = adapters.DefaultTimeout
	}

	if cfg.Sentinel.Webhook.Timeout <= 0 {
		cfg.Sentinel.Webhook.Timeout = 5 * time.Second
	}

	if cfg.Sentinel.Logging.Level == "" {
		cfg.Sentinel.Logging.Level = "info"
	}
}

func buildRegistry(cfg *config.Config) *adapters.Registry {
	reg := adapters.NewRegistry()
	a := cfg.Sentinel.Adapters

	// Credentialed adapters are registered even without keys; they
	// degrade into skipped cards at run time.
	if a.Whois.Enabled {
		reg.Register(adapters.NewWhoisAdapter(adapters.WhoisConfig{Server: a.Whois.Server, Timeout: a.Timeout}))
	}
	if a.SSL.Enabled {
		reg.Register(adapters.NewSSLAdapter(adapters.SSLConfig{Timeout: a.Timeout}))
	}
	if a.SafeBrowsing.Enabled {
		reg.Register(adapters.NewSafeBrowsingAdapter(adapters.SafeBrowsingConfig{
			APIKey:  a.SafeBrowsing.APIKey,
			URL:     a.SafeBrowsing.URL,
			Timeout: a.Timeout,
		}))
	}
	if a.Reddit.Enabled {
		reg.Register(adapters.NewRedditAdapter(adapters.RedditConfig{URL: a.Reddit.URL, Timeout: a.Timeout}))
	}
	if a.ScamAdviser.Enabled {
		reg.Register(adapters.NewScamAdviserAdapter(adapters.ScamAdviserConfig{
			APIKey:  a.ScamAdviser.APIKey,
			URL:     a.ScamAdviser.URL,
			Timeout: a.Timeout,
		}))
	}
	if a.RedFlags.Enabled {
		reg.Register(adapters.NewRedFlagsAdapter(adapters.RedFlagsConfig{Timeout: a.Timeout}))
	}

	var ruleEngine rules.Engine = &rules.NoopEngine{}
	if cfg.Sentinel.Rules.Enabled {
		if strings.TrimSpace(cfg.Sentinel.Rules.Path) == "" {
			logger.Warnf("Rules enabled but rules.path is empty; heuristic adapter disabled")
		} else {
			sigmaEngine, stats, err := rules.NewSigmaEngine(cfg.Sentinel.Rules.Path)
			if err != nil {
				logger.Errorf("Failed to load rules from %s: %v", cfg.Sentinel.Rules.Path, err)
				log.Fatalf("Failed to load rules: %v", err)
			}
			ruleEngine = sigmaEngine
			logger.Infof("Rules loaded: loaded=%d skipped_complex=%d skipped_invalid=%d files=%d",
				stats.Loaded, stats.SkippedComplex, stats.SkippedInvalid, stats.TotalFiles)
			if stats.Loaded == 0 {
				logger.Warnf("No compatible rules loaded; heuristic adapter will always pass")
			}
			reg.Register(adapters.NewHeuristicsAdapter(ruleEngine))
		}
	}

	if a.PriceSearch.Enabled {
		reg.Register(adapters.NewPriceSearchAdapter(adapters.PriceSearchConfig{
			APIKey:  a.PriceSearch.APIKey,
			URL:     a.PriceSearch.URL,
			Timeout: a.Timeout,
		}))
	}

	// Deepen focus subsets. Unknown focus values fall back to the full set.
	reg.SetFocus("domain", []string{"whois", "ssl", "heuristics"})
	reg.SetFocus("reputation", []string{"scamadviser", "safe_browsing", "reddit"})
	reg.SetFocus("community", []string{"reddit"})
	reg.SetFocus("page", []string{"red_flags", "heuristics"})
	reg.SetFocus("price", []string{"price_search"})

	return reg
}

func main() {
	configArg := ""
	if len(os.Args) > 1 {
		configArg = os.Args[1]
	}
	configPath := findConfigFile(configArg)

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyDefaults(cfg)

	if err := logger.Init(cfg.Sentinel.Logging.Enabled, cfg.Sentinel.Logging.Level, cfg.Sentinel.Logging.File, cfg.Sentinel.Logging.Console); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	logger.Infof("Sentinel starting")
	logger.Infof("Config loaded from: %s", configPath)

	reg := buildRegistry(cfg)
	store := session.NewStore(cfg.Sentinel.Sessions.Retention)
	col := collector.New(cfg.Sentinel.Adapters.Timeout)

	thresholds := score.Thresholds{
		Trusted:    cfg.Sentinel.Scoring.TrustedThreshold,
		Caution:    cfg.Sentinel.Scoring.CautionThreshold,
		CardSafety: cfg.Sentinel.Scoring.CardSafety,
	}

	deps := engine.Deps{
		Store:      store,
		Registry:   reg,
		Collector:  col,
		Thresholds: thresholds,
	}

	if cfg.Sentinel.Adapters.PriceSearch.Enabled {
		deps.Searcher = adapters.NewPriceSearchAdapter(adapters.PriceSearchConfig{
			APIKey:  cfg.Sentinel.Adapters.PriceSearch.APIKey,
			URL:     cfg.Sentinel.Adapters.PriceSearch.URL,
			Timeout: cfg.Sentinel.Adapters.Timeout,
		})
	}

	var reportWriter *report.Writer
	if cfg.Sentinel.Report.Enabled {
		reportWriter, err = report.NewWriter(cfg.Sentinel.Report.Path)
		if err != nil {
			logger.Errorf("Failed to create report writer: %v", err)
			log.Fatalf("Failed to create report writer: %v", err)
		}
		deps.Reporter = reportWriter
	}

	if cfg.Sentinel.Webhook.Enabled {
		webhook, err := notify.NewWebhook(notify.Config{
			URL:     cfg.Sentinel.Webhook.URL,
			Timeout: cfg.Sentinel.Webhook.Timeout,
			Headers: cfg.Sentinel.Webhook.Headers,
		})
		if err != nil {
			logger.Errorf("Failed to create webhook sink: %v", err)
			log.Fatalf("Failed to create webhook sink: %v", err)
		}
		deps.Notifier = webhook
		logger.Infof("Danger webhook enabled: %s", cfg.Sentinel.Webhook.URL)
	}

	var archiveStore *archive.RedisStore
	if cfg.Sentinel.Archive.Enabled {
		archiveStore, err = archive.NewRedisStore(archive.RedisConfig{
			Addr:      cfg.Sentinel.Archive.Addr,
			Password:  cfg.Sentinel.Archive.Password,
			DB:        cfg.Sentinel.Archive.DB,
			KeyPrefix: cfg.Sentinel.Archive.KeyPrefix,
			TTL:       cfg.Sentinel.Archive.TTL,
		})
		if err != nil {
			logger.Errorf("Failed to connect archive store: %v", err)
			log.Fatalf("Failed to connect archive store: %v", err)
		}
		deps.Archiver = archiveStore
		deps.Reader = archiveStore
		logger.Infof("Redis archive enabled: %s", cfg.Sentinel.Archive.Addr)
	}

	eng := engine.New(deps)
	srv := server.New(eng, cfg.Sentinel.Server.StreamBuffer, cfg.Sentinel.Metrics.Enabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go store.Run(ctx, cfg.Sentinel.Sessions.SweepInterval)

	httpServer := &http.Server{
		Addr:    cfg.Sentinel.Server.Addr,
		Handler: srv.Handler(),
	}

	go func() {
		logger.Infof("Listening on %s", cfg.Sentinel.Server.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("HTTP server error: %v", err)
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	logger.Infof("Shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Sentinel.Server.ShutdownTimeout)
	defer shutdownCancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("Error shutting down HTTP server: %v", err)
	}

	if reportWriter != nil {
		if err := reportWriter.Close(); err != nil {
			logger.Errorf("Error closing report writer: %v", err)
		}
	}
	if archiveStore != nil {
		if err := archiveStore.Close(); err != nil {
			logger.Errorf("Error closing archive store: %v", err)
		}
	}

	logger.Infof("Sentinel stopped")
}
