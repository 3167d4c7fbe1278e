package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/pitchside/pitchside/internal/analytics"
	"github.com/pitchside/pitchside/internal/api"
	"github.com/pitchside/pitchside/internal/circuitbreaker"
	"github.com/pitchside/pitchside/internal/config"
	"github.com/pitchside/pitchside/internal/leaderelection"
	"github.com/pitchside/pitchside/internal/metrics"
	"github.com/pitchside/pitchside/internal/notify"
	"github.com/pitchside/pitchside/internal/report"
	"github.com/pitchside/pitchside/internal/store/postgres"
	"github.com/pitchside/pitchside/internal/sweep"
	"github.com/pitchside/pitchside/internal/transition"

	_ "github.com/lib/pq"
)

// Build-time variables set via -ldflags
var (
	version = "dev"
	commit  = "unknown"
)

const (
	exitSuccess       = 0
	exitRuntimeError  = 1
	exitInvalidConfig = 2
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(exitRuntimeError)
	}

	cmd := os.Args[1]

	switch cmd {
	case "serve":
		os.Exit(runServe())
	case "validate":
		os.Exit(runValidate())
	case "config":
		os.Exit(runConfig())
	case "version":
		os.Exit(runVersion())
	case "--help", "-h", "help":
		printUsage()
		os.Exit(exitSuccess)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", cmd)
		printUsage()
		os.Exit(exitRuntimeError)
	}
}

func printUsage() {
	fmt.Println(`pitchside - sports event lifecycle backend

Usage:
  pitchside <command>

Commands:
  serve      Start the API server and lifecycle sweeps
  validate   Validate configuration (no connections made)
  config     Print effective configuration as JSON (secrets masked)
  version    Print version information

Environment Variables:
  DATABASE_URL               PostgreSQL connection string (required)
  REDIS_ADDR                 Redis address for transition analytics (optional)
  HTTP_ADDR                  HTTP server address (default: ":8080")

  COMPLETION_SWEEP_INTERVAL  Completion sweep cadence (default: "1h")
  AUTOREJECT_SWEEP_INTERVAL  Auto-reject sweep cadence (default: "5m")
  AUTOREJECT_WINDOW          Reject pending events starting within (default: "30m")

  DB_OP_TIMEOUT              Database operation timeout (default: "5s")
  DB_MAX_OPEN_CONNS          Max open database connections (default: "25")
  DB_MAX_IDLE_CONNS          Max idle database connections (default: "5")
  DB_CONN_MAX_LIFETIME       Max connection lifetime (default: "30m")
  DB_CONN_MAX_IDLE_TIME      Max connection idle time (default: "5m")

  HTTP_SHUTDOWN_TIMEOUT      Graceful HTTP shutdown timeout (default: "10s")

  NOTIFY_WEBHOOK_URL         Webhook endpoint for transition events (optional)
  NOTIFY_SECRET              HMAC secret for webhook signatures
  NOTIFY_TIMEOUT             Per-request webhook timeout (default: "30s")
  NOTIFY_BUFFER_SIZE         Transition event buffer size (default: "100")
  NOTIFY_DRAIN_TIMEOUT       Notifier drain timeout on shutdown (default: "30s")

  METRICS_ENABLED            Enable Prometheus metrics (default: "false")
  METRICS_PATH               Metrics endpoint path (default: "/metrics")
  METRICS_PORT               Metrics server port (default: "9090")

  CIRCUIT_BREAKER_THRESHOLD  Failures before the webhook circuit opens,
                             0 disables (default: "5")
  CIRCUIT_BREAKER_COOLDOWN   Open-circuit cooldown (default: "2m")

  LEADER_ELECTION_ENABLED    Run sweeps on one instance only (default: "false")
  LEADER_LOCK_KEY            Advisory lock key shared by all instances
  LEADER_RETRY_INTERVAL      Follower lock retry interval (default: "5s")
  LEADER_HEARTBEAT_INTERVAL  Leader connection heartbeat (default: "2s")`)
}

func runServe() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		return exitInvalidConfig
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		return exitRuntimeError
	}
	defer db.Close()

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.DBConnMaxIdleTime)

	log.Printf("pitchside: db pool configured (max_open=%d, max_idle=%d, max_lifetime=%s, max_idle_time=%s)",
		cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetime, cfg.DBConnMaxIdleTime)

	if err := db.Ping(); err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect to database: %v\n", err)
		return exitRuntimeError
	}

	store := postgres.New(db, cfg.DBOpTimeout)

	// Metrics sink (optional)
	var metricsSink *metrics.PrometheusSink
	var metricsServer *http.Server

	if cfg.MetricsEnabled {
		metricsSink = metrics.NewPrometheusSink(prometheus.DefaultRegisterer)
		log.Printf("pitchside: metrics enabled (port=%d, path=%s)", cfg.MetricsPort, cfg.MetricsPath)

		metricsMux := http.NewServeMux()
		metricsMux.Handle(cfg.MetricsPath, promhttp.Handler())
		metricsServer = &http.Server{
			Addr:    ":" + strconv.Itoa(cfg.MetricsPort),
			Handler: metricsMux,
		}
		go func() {
			log.Printf("pitchside: metrics server listening on :%d", cfg.MetricsPort)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Printf("pitchside: metrics server error: %v", err)
			}
		}()
	} else {
		log.Println("pitchside: METRICS_ENABLED not set; metrics disabled")
	}

	exec := transition.New(store)
	if metricsSink != nil {
		exec = exec.WithMetrics(metricsSink)
	}

	// Notifier: transitions are fanned out over the bus when a webhook or
	// analytics backend is configured.
	var notifierWg sync.WaitGroup
	var cancelNotifier context.CancelFunc

	if cfg.NotifyWebhookURL != "" || cfg.RedisAddr != "" {
		bus := notify.NewBus(cfg.NotifyBufferSize)
		if metricsSink != nil {
			bus = bus.WithMetrics(metricsSink)
		}
		exec = exec.WithEmitter(bus)

		disp := notify.NewDispatcher(notify.Endpoint{
			URL:     cfg.NotifyWebhookURL,
			Secret:  cfg.NotifySecret,
			Timeout: cfg.NotifyTimeout,
		}, notify.NewHTTPWebhookSender()).
			WithDrainTimeout(cfg.NotifyDrainTimeout)
		if metricsSink != nil {
			disp = disp.WithMetrics(metricsSink)
		}

		if cfg.NotifyWebhookURL != "" && cfg.CircuitBreakerThreshold > 0 {
			disp = disp.WithBreaker(circuitbreaker.New(cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown))
			log.Printf("pitchside: circuit breaker enabled (threshold=%d, cooldown=%s)",
				cfg.CircuitBreakerThreshold, cfg.CircuitBreakerCooldown)
		}

		if cfg.RedisAddr != "" {
			redisClient := redis.NewClient(&redis.Options{
				Addr: cfg.RedisAddr,
			})
			disp = disp.WithAnalytics(analytics.NewRedisSink(redisClient))
			log.Printf("pitchside: analytics enabled (redis=%s)", cfg.RedisAddr)
		} else {
			log.Println("pitchside: REDIS_ADDR not set; analytics disabled")
		}

		var notifierCtx context.Context
		notifierCtx, cancelNotifier = context.WithCancel(context.Background())
		notifierWg.Add(1)
		go func() {
			defer notifierWg.Done()
			disp.Run(notifierCtx, bus.Channel())
		}()
		log.Printf("pitchside: notifier started (webhook=%t, buffer=%d)",
			cfg.NotifyWebhookURL != "", cfg.NotifyBufferSize)
	} else {
		log.Println("pitchside: no NOTIFY_WEBHOOK_URL or REDIS_ADDR; notifier disabled")
	}

	sweeper := sweep.New(sweep.Config{
		CompletionInterval: cfg.CompletionSweepInterval,
		AutoRejectInterval: cfg.AutoRejectSweepInterval,
		AutoRejectWindow:   cfg.AutoRejectWindow,
	}, store, exec)
	if metricsSink != nil {
		sweeper = sweeper.WithMetrics(metricsSink)
	}

	// Sweeps run on every instance unless leader election hands them to a
	// single replica.
	var electorWg sync.WaitGroup
	var cancelElector context.CancelFunc

	if cfg.LeaderElectionEnabled {
		elector := leaderelection.New(
			db,
			cfg.LeaderLockKey,
			cfg.LeaderRetryInterval,
			cfg.LeaderHeartbeatInterval,
			func(ctx context.Context) {
				if err := sweeper.Start(); err != nil {
					log.Printf("pitchside: sweeper start failed: %v", err)
				}
			},
			sweeper.Stop,
		)
		var electorCtx context.Context
		electorCtx, cancelElector = context.WithCancel(context.Background())
		electorWg.Add(1)
		go func() {
			defer electorWg.Done()
			elector.Run(electorCtx)
		}()
		log.Printf("pitchside: leader election enabled (lock_key=%d)", cfg.LeaderLockKey)
	} else {
		if err := sweeper.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to start sweeper: %v\n", err)
			if cancelNotifier != nil {
				cancelNotifier()
				notifierWg.Wait()
			}
			return exitRuntimeError
		}
	}

	reporter := report.New(store)
	if metricsSink != nil {
		reporter = reporter.WithMetrics(metricsSink)
	}

	apiHandler := api.NewHandler(store, exec, reporter).WithHealthChecker(db)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: apiHandler,
	}

	go func() {
		log.Printf("pitchside: http server listening on %s", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("pitchside: http server error: %v", err)
		}
	}()

	log.Printf("pitchside: started (http=%s, completion=%s, auto_reject=%s)",
		cfg.HTTPAddr, cfg.CompletionSweepInterval, cfg.AutoRejectSweepInterval)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	received := <-sig

	log.Printf("pitchside: received signal %v, shutting down", received)

	// Phase 1: stop the sweeps (no new system transitions)
	if cancelElector != nil {
		log.Println("pitchside: stopping elector...")
		cancelElector()
		electorWg.Wait()
		log.Println("pitchside: elector stopped")
	} else {
		log.Println("pitchside: stopping sweeper...")
		sweeper.Stop()
		log.Println("pitchside: sweeper stopped")
	}

	// Phase 2: stop the notifier (drains buffered events before returning)
	if cancelNotifier != nil {
		log.Println("pitchside: stopping notifier (draining events)...")
		cancelNotifier()
		notifierWg.Wait()
		log.Println("pitchside: notifier stopped")
	}

	// Phase 3: stop HTTP server with graceful shutdown
	log.Println("pitchside: stopping http server...")
	httpShutdownCtx, httpShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
	defer httpShutdownCancel()
	if err := httpServer.Shutdown(httpShutdownCtx); err != nil {
		log.Printf("pitchside: http server shutdown error: %v", err)
	}
	log.Println("pitchside: http server stopped")

	// Phase 4: stop metrics server if running
	if metricsServer != nil {
		log.Println("pitchside: stopping metrics server...")
		metricsShutdownCtx, metricsShutdownCancel := context.WithTimeout(context.Background(), cfg.HTTPShutdownTimeout)
		defer metricsShutdownCancel()
		if err := metricsServer.Shutdown(metricsShutdownCtx); err != nil {
			log.Printf("pitchside: metrics server shutdown error: %v", err)
		}
		log.Println("pitchside: metrics server stopped")
	}

	log.Println("pitchside: stopped")
	return exitSuccess
}

func runValidate() int {
	cfg := config.Load()

	if err := config.Validate(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return exitInvalidConfig
	}

	fmt.Println("configuration valid")
	return exitSuccess
}

func runConfig() int {
	cfg := config.Load()

	data, err := cfg.MaskedJSON()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to marshal config: %v\n", err)
		return exitRuntimeError
	}

	fmt.Println(string(data))
	return exitSuccess
}

func runVersion() int {
	fmt.Printf("pitchside version %s (commit: %s)\n", version, commit)
	return exitSuccess
}
