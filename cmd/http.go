package cmd

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"motorserve/booking"
	commonJetstream "motorserve/common/jetstream"
	inboundHttp "motorserve/inbound/http"
	"motorserve/outbound/cache"
	"motorserve/outbound/emailjs"
	"net/http"
	"time"
)

func runHttpServerCmd(ctx context.Context) {
	cfg := newCfg("env")

	stopProfile := startProfile(cfg, "http")
	defer stopProfile()

	shutdownTracer := newTracerProvider(ctx, cfg, "motorserve-http")
	defer shutdownTracer()

	validate := inboundHttp.NewValidator()

	cacheClient := newRedis(cfg)
	defer cacheClient.Close()

	natsConn := newNats(cfg)
	defer natsConn.Close()

	js := newJs(natsConn)
	if _, err := commonJetstream.CreateQueueStream(ctx, js); err != nil {
		log.Fatalln("unable to create queue stream", err)
	}

	dispatcher := &emailjs.EmailJSOutbound{Cfg: cfg}
	dispatcher.Init()

	pipeline := booking.Pipeline{
		Config:     newBookingConfig(cfg),
		Dispatcher: dispatcher,
		Locker: cache.SendingLock{
			Client: cacheClient,
			TTL:    cfg.GetDuration("booking.lock_ttl"),
		},
		Publisher: js,
	}

	sessions := cache.SessionCache{
		Client: cacheClient,
		TTL:    cfg.GetDuration("booking.form_ttl"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		slog.DebugContext(r.Context(), "health check")
		w.WriteHeader(http.StatusOK)
	})

	timeoutMiddleware := inboundHttp.TimeoutMiddleware(20 * time.Second)
	corsMiddleware := inboundHttp.CorsMiddleware(cfg.GetString("server.allow_origin"))

	inboundHttp.RegisterBookingHttp(mux, cfg, sessions, pipeline, validate)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.GetInt("server.port")),
		Handler:           timeoutMiddleware(corsMiddleware(mux)),
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalln("unable to start server", err)
		}
	}()

	slog.Info("http server started", slog.String("addr", srv.Addr))

	<-ctx.Done()

	ctxShutDown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctxShutDown); err != nil {
		log.Fatalln("unable to shutdown server", err)
	}

	slog.Info("http server stopped")
}
