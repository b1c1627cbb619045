// The terminal daemon keeps one POS terminal's local order collection in
// step with the backing store: push events stream in over a websocket,
// mutations go out optimistically, and a periodic refetch repairs whatever
// either side missed.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/kainan-pos/terminal/internal/config"
	"github.com/kainan-pos/terminal/internal/kitchen"
	"github.com/kainan-pos/terminal/internal/logger"
	"github.com/kainan-pos/terminal/internal/push"
	"github.com/kainan-pos/terminal/internal/reconcile"
	"github.com/kainan-pos/terminal/internal/remote"
	"github.com/kainan-pos/terminal/internal/report"
	"github.com/kainan-pos/terminal/internal/store"
	"github.com/kainan-pos/terminal/internal/syncer"
)

func main() {
	cfg, err := config.LoadTerminal()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.NewConsole(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	orders := store.New(log)
	if cfg.CacheFile != "" {
		if data, err := os.ReadFile(cfg.CacheFile); err == nil {
			if err := orders.Restore(data); err != nil {
				log.Warn().Err(err).Msg("stale cache file ignored")
			} else {
				log.Info().Int("orders", orders.Len()).Msg("restored cached orders")
			}
		}
	}

	dispatcher := push.NewDispatcher()
	unbind := reconcile.New(orders, log).Bind(dispatcher)
	defer unbind()

	source := push.NewSource(cfg.PushURL+"?branch="+cfg.Branch, dispatcher, log)
	go source.Run(ctx)

	client := remote.NewClient(cfg.RemoteBaseURL, log)
	queue := syncer.New(orders, client, cfg.Branch, func(n syncer.Notice) {
		log.Warn().
			Str("order_id", n.OrderID).
			Str("operation", n.Operation).
			Err(n.Err).
			Msg("change is local only until the connection recovers")
	}, log)

	if err := queue.Refetch(ctx); err != nil {
		log.Warn().Err(err).Msg("initial fetch failed, starting from cache")
	}
	go queue.RunRefetch(ctx, cfg.RefetchInterval)

	// Log the kitchen load whenever the collection changes.
	estimator := kitchen.Estimator{
		PerOrderMinutes: cfg.PerOrderMinutes,
		Capacity:        cfg.KitchenCapacity,
	}
	unsubscribe := orders.Subscribe(func(store.Change) {
		view := estimator.Status(orders.List())
		log.Debug().
			Int("queue", view.OrdersInQueue).
			Int("wait_minutes", view.EstimatedWaitMinutes).
			Str("severity", view.Severity).
			Msg("kitchen load")
	})
	defer unsubscribe()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// Let in-flight pushes land, then snapshot the collection for the next
	// start and print the day so far.
	queue.Wait()
	if cfg.CacheFile != "" {
		if data, err := orders.Export(); err == nil {
			if err := os.WriteFile(cfg.CacheFile, data, 0o600); err != nil {
				log.Error().Err(err).Msg("cache write failed")
			}
		}
	}
	sales := report.Daily(orders.List(), time.Now())
	log.Info().
		Int("orders", sales.OrderCount).
		Int("completed", sales.CompletedCount).
		Str("collected", sales.Collected.String()).
		Str("outstanding", sales.Outstanding.String()).
		Msg("business day summary")
}
