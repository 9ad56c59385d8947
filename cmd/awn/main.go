package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akamensky/argparse"
	"github.com/awn-app/awn/handlers"
	"github.com/awn-app/awn/pkg/awn"
	"github.com/awn-app/awn/pkg/backend"
	"github.com/awn-app/awn/pkg/config"
	"github.com/awn-app/awn/pkg/jobs"
	"github.com/awn-app/awn/pkg/logging"
	"github.com/awn-app/awn/pkg/proxy"
	"github.com/awn-app/awn/pkg/query"
	"github.com/awn-app/awn/pkg/ratelimit"
	"github.com/charmbracelet/log"
	"go.uber.org/automaxprocs/maxprocs"
)

func main() {
	parser := argparse.NewParser("awn", "Volunteer and opportunity board server with a same-origin page proxy")

	port := parser.Int("p", "port", &argparse.Options{
		Required: false,
		Help:     "Port the server listens on. Overrides PORT",
	})
	ruleset := parser.String("r", "ruleset", &argparse.Options{
		Required: false,
		Help:     "File, directory or ';'-separated list of proxy rulesets. Overrides RULESET",
	})
	verbose := parser.Flag("v", "verbose", &argparse.Options{
		Required: false,
		Help:     "Log debug output with callers",
	})

	if err := parser.Parse(os.Args); err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *ruleset != "" {
		cfg.Proxy.Ruleset = *ruleset
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.Log, *verbose)
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debugf)); err != nil {
		log.Warn("set GOMAXPROCS", "err", err)
	}

	if err := run(cfg, logger); err != nil {
		log.Fatal("server stopped", "err", err)
	}
}

func run(cfg *config.Config, logger *log.Logger) error {
	rules, err := proxy.LoadRuleset(cfg.Proxy.Ruleset)
	if err != nil {
		return fmt.Errorf("load ruleset: %w", err)
	}
	allowed := cfg.Proxy.AllowedDomains
	if cfg.Proxy.AllowedDomainsRuleset {
		allowed = append(allowed, rules.Domains()...)
	}

	p := proxy.New(proxy.Options{
		UserAgent:      cfg.Proxy.UserAgent,
		Rules:          rules,
		AllowedDomains: allowed,
		Timeout:        cfg.ProxyTimeout(),
		Rewriter:       proxy.NewRewriter(cfg.Proxy.Rewriter),
		LogURLs:        cfg.Proxy.LogURLs,
	})

	if cfg.APIURL() == "" {
		log.Warn("API_BASE_URL is not set, backend calls will fail")
	}
	cache := query.New(cfg.Cache.Size, cfg.Cache.StaleTime)
	svc := awn.NewService(backend.NewClient(cfg.APIURL(), nil), cache)

	scheduler := jobs.NewScheduler()
	if err := scheduler.Register("cache-prune", cfg.Cache.PruneSchedule, cache); err != nil {
		return err
	}

	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		r, err := ratelimit.NewRedis(cfg.RedisURL)
		if err != nil {
			return err
		}
		defer r.Close()
		limiter = r
	} else {
		m := ratelimit.NewMemory()
		if err := scheduler.Register("ratelimit-sweep", "@every 5m", jobs.SweeperFunc(m.Sweep)); err != nil {
			return err
		}
		limiter = m
	}

	app := handlers.New(handlers.Options{
		Service:        svc,
		Proxy:          p,
		Logger:         logger,
		PublicOrigin:   cfg.PublicOrigin,
		Production:     cfg.IsProduction(),
		Limiter:        limiter,
		ProxyRateLimit: cfg.Proxy.RateLimit,
	})

	scheduler.Start()
	defer scheduler.Stop()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errc := make(chan error, 1)
	go func() {
		log.Info("starting server", "addr", cfg.Addr(), "env", cfg.Environment)
		errc <- app.Listen(cfg.Addr())
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	return app.ShutdownWithTimeout(10 * time.Second)
}
