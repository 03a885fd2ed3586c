// Command anticycled runs the replacement-cycling defense daemon: it
// subscribes to a Bitcoin node's ZMQ mempool feed, drives the cycle
// detection engine, and serves a small HTTP control surface.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/instagibbs/anticycle/internal/audit"
	"github.com/instagibbs/anticycle/internal/config"
	"github.com/instagibbs/anticycle/internal/cycle"
	"github.com/instagibbs/anticycle/internal/dashboard"
	"github.com/instagibbs/anticycle/internal/eventsource"
	"github.com/instagibbs/anticycle/internal/feeoracle"
	"github.com/instagibbs/anticycle/internal/httpapi"
	"github.com/instagibbs/anticycle/internal/rpcclient"
	"github.com/instagibbs/anticycle/internal/telemetry"
)

func main() {
	log.Println("Starting anticycle daemon...")

	cfg := config.Load(os.Args[1:])
	log.Printf("config: %s", cfg)

	rpc, err := rpcclient.New(rpcclient.Config{Host: cfg.RPCHost, User: cfg.RPCUser, Pass: cfg.RPCPass})
	if err != nil {
		log.Fatalf("FATAL: failed to connect to Bitcoin RPC at %s: %v", cfg.RPCHost, err)
	}
	defer rpc.Shutdown()

	var oracle cycle.RateOracle
	switch cfg.FeeOracle {
	case "http":
		oracle = feeoracle.NewHTTPOracle(feeoracle.DefaultMempoolSpaceURL)
	default:
		oracle = feeoracle.NewRPCOracle(rpc, 3)
	}

	hub := dashboard.NewHub()
	go hub.Run()

	metrics := telemetry.NewMetrics()

	hookSources := []cycle.Hooks{hub.Hooks(), metrics.Hooks()}

	var auditLog *audit.Log
	if cfg.DatabaseURL != "" {
		auditLog, err = audit.Connect(context.Background(), cfg.DatabaseURL)
		if err != nil {
			log.Printf("warning: audit log disabled, failed to connect: %v", err)
		} else {
			defer auditLog.Close()
			if err := auditLog.InitSchema(context.Background()); err != nil {
				log.Printf("warning: audit schema init failed: %v", err)
			} else {
				hookSources = append(hookSources, auditLog.Hooks())
			}
		}
	}

	engine := cycle.NewEngine(rpc, rpc, rpc, oracle, cfg.CacheByteBudget,
		cycle.WithAllowPackages(cfg.AllowPackages),
		cycle.WithLogger(stdLogAdapter{}),
		cycle.WithHooks(cycle.MergeHooks(hookSources...)),
	)

	router := httpapi.SetupRouter(engine, hub)
	go func() {
		log.Printf("http control surface listening on :%s", cfg.Port)
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Printf("http server stopped: %v", err)
		}
	}()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	source, err := eventsource.Dial(ctx, cfg.ZMQEndpoint)
	if err != nil {
		log.Fatalf("FATAL: failed to connect to ZMQ endpoint %s: %v", cfg.ZMQEndpoint, err)
	}
	defer source.Close()

	log.Printf("connected to mempool event source %s", source)
	runEventLoop(ctx, source, engine)

	log.Println("anticycled shutting down")
}

// runEventLoop drains the event source until ctx is cancelled, handing
// each event to the engine in arrival order (spec §5's single-consumer
// ordering requirement).
func runEventLoop(ctx context.Context, source eventsource.Source, engine *cycle.Engine) {
	for {
		ev, err := source.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("event source error: %v", err)
			continue
		}
		engine.HandleEvent(ctx, ev)
	}
}

// stdLogAdapter satisfies cycle.Logger using the standard log package.
type stdLogAdapter struct{}

func (stdLogAdapter) Printf(format string, args ...any) {
	log.Printf(format, args...)
}
