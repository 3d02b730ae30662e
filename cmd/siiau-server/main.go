package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"siiau-backend/internal/chrono"
	"siiau-backend/internal/config"
	"siiau-backend/lib/serviceutil"
	"siiau-backend/services/api"
	"siiau-backend/services/catalog"
	"siiau-backend/services/notify"
	"siiau-backend/services/subscriptions"
	"sync"
	"time"
)

const shutdownGrace = time.Second * 10

func main() {
	verbose := flag.Bool("v", false, "Enable verbose logging/instrumentation.")
	initialScrape := flag.Bool("scrape", false, "Refresh the catalog immediately on run.")
	configPath := flag.String("config", "config.json5", "Path to the config file.")
	flag.Parse()

	ctx := serviceutil.SignalContext()

	output := InitTelemetry(ctx, *verbose)

	cfg, err := config.Read(*configPath)
	if err != nil {
		serviceutil.Fatal("read config", err)
	}

	client, err := cfg.Catalog.Client(output)
	if err != nil {
		serviceutil.Fatal("init siiau client", err)
	}
	catalogOpts, err := cfg.CatalogOptions(client)
	if err != nil {
		serviceutil.Fatal("init catalog", err)
	}
	catalogService := catalog.NewService(catalogOpts)

	clock := chrono.NewStandardTime()
	store, database, err := cfg.OpenStore(clock)
	if err != nil {
		serviceutil.Fatal("open subscriptions", err)
	}
	defer database.Close()

	monitorOpts, err := cfg.MonitorOptions(store, catalogService, cfg.Notifier())
	if err != nil {
		serviceutil.Fatal("init monitor", err)
	}
	monitorOpts.Time = clock
	monitor := subscriptions.NewMonitor(monitorOpts)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		catalogService.Run(ctx, *initialScrape)
	}()
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()

	err = monitor.Announce(ctx, notify.SubjectStartup, fmt.Sprintf(
		"Monitor iniciado: ciclo %s, centro %s, carrera %s.",
		cfg.Catalog.Term, cfg.Catalog.Center, cfg.Catalog.Major,
	))
	if err != nil {
		slog.WarnContext(ctx, "announce startup", "err", err)
	}

	server := serviceutil.NewHttpServer(cfg.Port, api.NewHandler(api.Options{
		Catalog:       catalogService,
		Subscriptions: store,
		Location:      chrono.Guadalajara(),
	}))
	err = serviceutil.ServeUntilDone(ctx, server, shutdownGrace)
	if err != nil {
		serviceutil.Fatal("serve http", err)
	}

	announceCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	err = monitor.Announce(announceCtx, notify.SubjectShutdown, "Monitor detenido.")
	if err != nil {
		slog.Warn("announce shutdown", "err", err)
	}

	wg.Wait()
}
