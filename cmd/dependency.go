package cmd

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"motorserve/booking"
	"motorserve/common/constant"
	"os"
	"runtime/pprof"
	"strings"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func newCfg(name string) *viper.Viper {
	config := viper.New()

	config.SetConfigName(name)
	config.SetConfigType("yaml")
	config.AddConfigPath(".")

	config.SetDefault("env", "production")
	config.SetDefault("server.port", 8080)
	config.SetDefault("server.timezone", "Africa/Nairobi")
	config.SetDefault("server.allow_origin", "*")
	config.SetDefault("booking.whatsapp_number", constant.DefaultWhatsAppNumber)
	config.SetDefault("booking.form_ttl", constant.BookingFormDefaultTTL)
	config.SetDefault("booking.lock_ttl", constant.BookingSendingLockDefaultTTL)
	config.SetDefault("emailjs.service_id", constant.PlaceholderEmailServiceID)
	config.SetDefault("emailjs.template_id", constant.PlaceholderEmailTemplateID)
	config.SetDefault("emailjs.public_key", constant.PlaceholderEmailPublicKey)
	config.SetDefault("otel.shutdown_timeout", "5s")
	config.SetDefault("queue.notify.timeout", "10s")
	config.SetDefault("queue.notify.max_deliver", 5)
	config.SetDefault("queue.notify.ack_wait", "30s")

	config.SetEnvPrefix("motorserve")
	config.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	config.AutomaticEnv()
	for _, key := range []string{"emailjs.service_id", "emailjs.template_id", "emailjs.public_key"} {
		if err := config.BindEnv(key); err != nil {
			log.Fatalln(err)
		}
	}
	if err := config.BindEnv("booking.whatsapp_number", "MOTORSERVE_WHATSAPP_NUMBER"); err != nil {
		log.Fatalln(err)
	}

	err := config.ReadInConfig()
	if err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Fatalln(err)
		}
	}

	err = os.Setenv("TZ", config.GetString("server.timezone"))
	if err != nil {
		log.Fatalln(err)
	}

	return config
}

// newBookingConfig fails startup when provider tokens are still the
// placeholders, except in dev.
func newBookingConfig(cfg *viper.Viper) booking.Config {
	bookingCfg, err := loadBookingConfig(cfg)
	if err != nil {
		log.Fatalln("invalid booking config", err)
	}

	return bookingCfg
}

func loadBookingConfig(cfg *viper.Viper) (booking.Config, error) {
	bookingCfg := booking.Config{
		ServiceID:      cfg.GetString("emailjs.service_id"),
		TemplateID:     cfg.GetString("emailjs.template_id"),
		PublicKey:      cfg.GetString("emailjs.public_key"),
		WhatsAppNumber: cfg.GetString("booking.whatsapp_number"),
	}

	env := cfg.GetString("env")
	if err := bookingCfg.Validate(env == "dev"); err != nil {
		return booking.Config{}, err
	}

	if bookingCfg.UsesPlaceholders() {
		slog.Warn("booking emails use placeholder emailjs credentials and will not be delivered", slog.String("env", env))
	}

	return bookingCfg, nil
}

func newRedis(cfg *viper.Viper) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.GetString("redis.addr"),
		Password: cfg.GetString("redis.password"),
		DB:       0,
	})

	err := rdb.Ping(context.Background()).Err()
	if err != nil {
		log.Fatalln(err)
	}

	return rdb
}

func newNats(viper *viper.Viper) *nats.Conn {
	conn, err := nats.Connect(viper.GetString("nats.addr"))
	if err != nil {
		log.Fatalln(err)
	}

	return conn
}

func newJs(conn *nats.Conn) jetstream.JetStream {
	js, err := jetstream.New(conn)
	if err != nil {
		log.Fatalln(err)
	}

	return js
}

// newTracerProvider exports spans over OTLP gRPC when otel.endpoint is set.
// The returned shutdown func flushes pending spans.
func newTracerProvider(ctx context.Context, cfg *viper.Viper, service string) func() {
	endpoint := cfg.GetString("otel.endpoint")
	if endpoint == "" {
		return func() {}
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		log.Fatalln("unable to create trace exporter", err)
	}

	res := resource.NewSchemaless(
		semconv.ServiceName(service),
		semconv.DeploymentEnvironment(cfg.GetString("env")),
	)

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GetDuration("otel.shutdown_timeout"))
		defer cancel()

		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Println("unable to shutdown tracer provider", err)
		}
	}
}

// startProfile writes CPU and heap profiles prefixed with name while env is dev.
func startProfile(cfg *viper.Viper, name string) func() {
	if cfg.GetString("env") != "dev" {
		return func() {}
	}

	cpu, err := os.Create(name + "-cpu.prof")
	if err != nil {
		log.Fatalf("could not create CPU profile: %v", err)
	}

	err = pprof.StartCPUProfile(cpu)
	if err != nil {
		log.Fatalf("could not start CPU profile: %v", err)
	}

	return func() {
		pprof.StopCPUProfile()
		cpu.Close()

		mem, err := os.Create(name + "-mem.prof")
		if err != nil {
			log.Printf("could not create memory profile: %v", err)
			return
		}
		defer mem.Close()

		if err := pprof.WriteHeapProfile(mem); err != nil {
			log.Printf("could not write memory profile: %v", err)
		}
	}
}
