package main

import (
	"context"
	"fmt"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/labstack/gommon/color"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"

	"github.com/rackerlabs/rse/internal/pkg/bootstrap"
	"github.com/rackerlabs/rse/internal/pkg/mongodb"
	"github.com/rackerlabs/rse/internal/pkg/service"
)

func main() {
	goapp.StartWithDefault()
	log.Logger = goapp.Log
	zerolog.DefaultContextLogger = &goapp.Log

	if err := mainInt(context.Background()); err != nil {
		log.Fatal().Err(err).Send()
	}
}

func mainInt(ctx context.Context) error {
	tp, err := initTracer(ctx, goapp.Config.GetString("otel.exporter.otlp.endpoint"))
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	if tp != nil {
		defer func() {
			ctx, cf := context.WithTimeout(context.Background(), time.Second*5)
			defer cf()
			if err := tp.Shutdown(ctx); err != nil {
				log.Warn().Err(err).Msg("Failed to shutdown OpenTelemetry")
			}
		}()
	}

	bCtx, err := bootstrap.Run(ctx, initOptions(goapp.Config))
	if err != nil {
		return fmt.Errorf("bootstrap: %w", err)
	}
	defer bCtx.Close()

	data := &service.Data{}
	data.Port = goapp.Config.GetInt("port")
	data.Health = bCtx
	data.Auth = bCtx.AuthCache
	data.TestMode = bCtx.TestMode
	data.Events, err = mongodb.NewEventRepository(bCtx.General)
	if err != nil {
		return fmt.Errorf("init event repository: %w", err)
	}

	printBanner()

	if err := service.StartWebServer(data); err != nil {
		return fmt.Errorf("start web server: %w", err)
	}
	return nil
}

func initOptions(cfg *viper.Viper) *bootstrap.Options {
	cfg.SetDefault("port", 8000)
	cfg.SetDefault("mongodb.replica-set", mongodb.NoReplicaSet)
	cfg.SetDefault("rse.event-ttl", 120)
	cfg.SetDefault("authcache.authtoken-prefix", "")

	return &bootstrap.Options{
		Provider:    cfg.GetString("authcache.provider"),
		TokenPrefix: cfg.GetString("authcache.authtoken-prefix"),
		CacheConfig: goapp.Sub(cfg, "authcache"),
		Endpoint: mongodb.Endpoint{
			URI:        cfg.GetString("mongodb.uri"),
			Database:   cfg.GetString("mongodb.database"),
			ReplicaSet: cfg.GetString("mongodb.replica-set"),
			UseSSL:     cfg.GetBool("mongodb.use_ssl"),
		},
		EventTTL: cfg.GetInt32("rse.event-ttl"),
		TestMode: cfg.GetBool("rse.test"),
		Retry:    mongodb.DefaultRetry,
	}
}

var (
	version string
)

func printBanner() {
	banner := `
    ____  _____ ______
   / __ \/ ___// ____/
  / /_/ /\__ \/ __/
 / _, _/___/ / /___
/_/ |_|/____/_____/   real-time stacked events  v: %s

%s
________________________________________________________

`
	cl := color.New()
	cl.Printf(banner, cl.Red(version), cl.Green("https://github.com/rackerlabs/rse"))
}

func initTracer(ctx context.Context, tracerURL string) (*trace.TracerProvider, error) {
	if tracerURL == "" {
		log.Ctx(ctx).Warn().Msg("No tracer URL set, skipping OpenTelemetry initialization.")
		return nil, nil
	}

	propagator := propagation.NewCompositeTextMapPropagator(propagation.Baggage{}, propagation.TraceContext{})
	otel.SetTextMapPropagator(propagator)

	log.Ctx(ctx).Info().Str("url", tracerURL).Msg("Setting up OpenTelemetry")
	exporter, err := otlptracehttp.New(ctx,
		otlptracehttp.WithEndpoint(tracerURL),
		otlptracehttp.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP HTTP exporter: %w", err)
	}

	tp := trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(resource.NewSchemaless(
			attribute.String("service.name", "rse"),
			attribute.String("service.version", version),
		)),
	)

	otel.SetTracerProvider(tp)
	return tp, nil
}
