package main

import (
	"context"
	"log/slog"
	"siiau-backend/lib/restyutil"
	"siiau-backend/lib/serviceutil"
	"siiau-backend/lib/telemetry"
	"time"
)

// InitTelemetry sets up logging and otel, when verbose it also returns an
// output that dumps every request made to the course offering portal.
func InitTelemetry(ctx context.Context, verbose bool) restyutil.InstrumentOutput {
	telemetry.InitSlog(verbose)

	if verbose {
		slog.DebugContext(ctx, "verbose logging enabled")
	}

	tel, err := telemetry.SetupFromEnv(ctx, "siiau-server")
	if err != nil {
		serviceutil.Fatal("setup telemetry", err)
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
		defer cancel()
		err := tel.Shutdown(shutdownCtx)
		if err != nil {
			slog.Warn("shutdown telemetry", "err", err)
		}
	}()
	telemetry.InstrumentPerfStats(ctx, time.Second*15)

	if !verbose {
		return nil
	}
	output, err := restyutil.NewFilesystemOutput("<dev_state>/resty/siiau")
	if err != nil {
		slog.WarnContext(ctx, "request dumps disabled", "err", err)
		return nil
	}
	return output
}
