package cmd

import (
	"context"
	"log"
	"log/slog"
	"motorserve/common/constant"
	commonJetstream "motorserve/common/jetstream"
	"motorserve/inbound/event"
	emailOutbound "motorserve/outbound/email"
	"time"

	"github.com/nats-io/nats.go/jetstream"
)

func runQueueNotifyCmd(ctx context.Context) {
	cfg := newCfg("env")

	stopProfile := startProfile(cfg, "notify")
	defer stopProfile()

	shutdownTracer := newTracerProvider(ctx, cfg, "motorserve-notify")
	defer shutdownTracer()

	natsConn := newNats(cfg)
	defer natsConn.Close()

	js := newJs(natsConn)
	st, err := commonJetstream.CreateQueueStream(ctx, js)
	if err != nil {
		log.Fatalln("failed to get stream", err)
	}

	outbound := &emailOutbound.EmailOutbound{Cfg: cfg}
	outbound.Init()

	notifyEvent := event.NotifyEvent{
		Mailer:  outbound,
		To:      outbound.Recipients(),
		Timeout: cfg.GetDuration("queue.notify.timeout"),
	}

	cons, err := st.CreateOrUpdateConsumer(ctx, jetstream.ConsumerConfig{
		Durable:       "consumer:notify",
		FilterSubject: constant.BookingWildcard,
		MaxDeliver:    cfg.GetInt("queue.notify.max_deliver"),
		AckWait:       cfg.GetDuration("queue.notify.ack_wait"),
	})
	if err != nil {
		log.Fatalln("failed to create consumer", err)
	}

	iter, err := cons.Messages()
	if err != nil {
		panic(err)
	}

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			default:
				msg, err := iter.Next()
				if err != nil && err != jetstream.ErrMsgIteratorClosed {
					slog.ErrorContext(ctx, "Error fetching message", slog.Any(constant.LogFieldErr, err))
					continue
				}

				if msg == nil {
					continue
				}

				var eventErr error
				switch msg.Subject() {
				case constant.SubjectBookingDispatched:
					eventErr = notifyEvent.BookingDispatchedHandler(ctx, msg.Data())
				}

				if eventErr != nil {
					msg.NakWithDelay(1 * time.Second)
					continue
				}

				if err := msg.Ack(); err != nil {
					slog.ErrorContext(ctx, "Error acknowledging message",
						slog.Any(constant.LogFieldErr, err),
						slog.Any(constant.LogFieldPayload, string(msg.Data())),
						slog.String("subject", msg.Subject()),
					)
					continue
				}
			}
		}
	}()

	slog.InfoContext(ctx, "notify queue consumer started")

	<-ctx.Done()

	iter.Stop()

	slog.InfoContext(ctx, "notify queue consumer stopped")
}
