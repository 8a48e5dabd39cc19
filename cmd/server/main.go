package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/seat-booking/internal/cache"
	"github.com/iliyamo/seat-booking/internal/config"
	"github.com/iliyamo/seat-booking/internal/database"
	"github.com/iliyamo/seat-booking/internal/queue"
	"github.com/iliyamo/seat-booking/internal/repository"
	"github.com/iliyamo/seat-booking/internal/repository/mongostore"
	"github.com/iliyamo/seat-booking/internal/service"
)

const shutdownTimeout = 15 * time.Second

// stores groups the persistence ports of the selected driver.
type stores struct {
	seats    service.SeatStore
	waitlist service.WaitlistStore
	history  service.HistoryStore
	events   service.EventStore
	ping     func(ctx context.Context) error
	close    func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("config")
	}
	log := config.NewLogger(cfg.LogLevel)
	log.WithFields(logrus.Fields{"env": cfg.Env, "store": cfg.StoreDriver}).Info("starting")

	if err := run(cfg, log); err != nil {
		log.WithError(err).Fatal("exited")
	}
	log.Info("stopped")
}

func run(cfg config.Config, log *logrus.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.close()

	// Redis is optional: without it invalidation, caching and rate limiting
	// are all disabled.
	rdb := config.NewRedisClient(log)
	var inv service.CacheInvalidator
	var async *cache.Async
	if rdb != nil {
		defer rdb.Close()
		async = cache.NewAsync(cache.NewRedisInvalidator(rdb), log)
		inv = async
	}

	broker := queue.NewClient(queue.Config{
		URL:              cfg.RabbitURL,
		Queues:           []string{cfg.BookingQueue, cfg.NotifyQueue},
		Prefetch:         cfg.QueuePrefetch,
		DeadLetterSuffix: cfg.DeadLetter,
	}, log)
	// a failed first dial keeps retrying in the background
	if err := broker.Start(ctx); err != nil {
		log.WithError(err).Warn("broker not reachable yet, reconnecting in background")
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.RunWorkers {
		orc := service.NewOrchestrator(st.seats, st.waitlist, st.history, st.events, inv, broker,
			service.OrchestratorConfig{NotifyQueue: cfg.NotifyQueue, RequeueOnLostRace: cfg.RequeueOnLostRace}, log)
		dispatcher := service.NewNotificationDispatcher(st.history, log)
		if err := subscribe(gctx, broker, cfg.BookingQueue, orc.HandleMessage, log); err != nil {
			return err
		}
		if err := subscribe(gctx, broker, cfg.NotifyQueue, dispatcher.HandleMessage, log); err != nil {
			return err
		}
		log.WithFields(logrus.Fields{"booking_queue": cfg.BookingQueue, "notify_queue": cfg.NotifyQueue}).Info("workers started")
	}

	if cfg.RunHTTP {
		e := newServer(cfg, st, broker, inv, rdb, log)
		addr := ":" + cfg.Port
		g.Go(func() error {
			log.WithField("addr", addr).Info("http listening")
			if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("http server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return e.Shutdown(sctx)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		return nil
	})

	err = g.Wait()
	// Stop waits for in-flight handlers, which may still invalidate.
	if stopErr := broker.Stop(); stopErr != nil && !errors.Is(stopErr, queue.ErrClosed) {
		log.WithError(stopErr).Warn("broker stop")
	}
	async.Wait()
	return err
}

func subscribe(ctx context.Context, broker *queue.Client, name string, h queue.Handler, log logrus.FieldLogger) error {
	err := broker.Subscribe(ctx, name, h)
	if err == nil {
		return nil
	}
	if errors.Is(err, queue.ErrClosed) || ctx.Err() != nil {
		return err
	}
	// registered anyway, replayed after reconnect
	log.WithError(err).WithField("queue", name).Warn("subscribe deferred until broker is reachable")
	return nil
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		client, db, err := database.OpenMongo(ctx, cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, err
		}
		if err := mongostore.EnsureIndexes(ctx, db); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, fmt.Errorf("mongo indexes: %w", err)
		}
		return &stores{
			seats:    mongostore.NewSeatStore(db),
			waitlist: mongostore.NewWaitlistStore(db),
			history:  mongostore.NewHistoryStore(db),
			events:   mongostore.NewEventStore(db),
			ping:     func(ctx context.Context) error { return client.Ping(ctx, nil) },
			close:    func() { _ = client.Disconnect(context.Background()) },
		}, nil
	default:
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("mysql: %w", err)
		}
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("mysql schema: %w", err)
		}
		return &stores{
			seats:    repository.NewSeatRepo(db),
			waitlist: repository.NewWaitlistRepo(db),
			history:  repository.NewHistoryRepo(db),
			events:   repository.NewEventRepo(db),
			ping:     db.PingContext,
			close:    func() { _ = db.Close() },
		}, nil
	}
}
