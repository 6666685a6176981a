// Command threadkit runs a small producer/consumer pipeline on top of the
// threadkit primitives: a jittered Poller produces jobs into a chanx
// channel, a Thread consumes them and retries flaky work with a backoff
// strategy, and every worker logs through a logchan channel that the main
// goroutine drains.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/baxromumarov/threadkit"
	"github.com/baxromumarov/threadkit/backoff"
	"github.com/baxromumarov/threadkit/chanx"
	"github.com/baxromumarov/threadkit/internal/config"
	"github.com/baxromumarov/threadkit/internal/logger"
	"github.com/baxromumarov/threadkit/logchan"
)

const shutdownTimeout = 5 * time.Second

var (
	errTransient  = errors.New("transient failure")
	errJobsClosed = errors.New("job queue closed")
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "threadkit:", err)
		os.Exit(1)
	}
}

func run() error {
	configPath := flag.String("config", "", "path to a YAML config file")
	writeDefaults := flag.String("write-config", "", "write the default config to this path and exit")
	failRate := flag.Float64("fail-rate", 0.3, "probability that a job attempt fails")
	flag.Parse()

	if *writeDefaults != "" {
		return config.Save(config.Defaults(), *writeDefaults)
	}

	cfg := config.Defaults()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	level, err := logger.ParseLevel(cfg.Log.Level)
	if err != nil {
		return err
	}
	format, err := logger.ParseFormat(cfg.Log.Format)
	if err != nil {
		return err
	}

	log := logger.New(level, format)
	defer func() { _ = log.Sync() }()
	zap.ReplaceGlobals(log)

	logs := logchan.New(logchan.ZapSink(log))
	workerLog := zap.New(logchan.NewCore(logs, level))

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	metrics := threadkit.NewMetrics(reg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Metrics.Addr != "" {
		serveMetrics(gctx, g, cfg.Metrics.Addr, reg, log)
	}

	jobs := chanx.New[int]()

	var next int
	producer := threadkit.NewPoller(func(ctx context.Context) error {
		next++
		if !jobs.Send(next) {
			return errJobsClosed
		}
		workerLog.Debug("job queued", zap.Int("job", next), zap.Int("backlog", jobs.Len()))
		return nil
	}, cfg.Poller,
		threadkit.WithName("producer"),
		threadkit.WithLogger(workerLog),
		threadkit.WithMetrics(metrics),
	)

	var consumer *threadkit.Thread
	consumer = threadkit.New(func(ctx context.Context) error {
		job, ok, err := jobs.ReceiveContext(ctx)
		if err != nil {
			return err
		}
		if !ok {
			consumer.Stop()
			return nil
		}
		return process(ctx, job, cfg.Backoff, *failRate, workerLog)
	},
		threadkit.WithName("consumer"),
		threadkit.WithLogger(workerLog),
		threadkit.WithMetrics(metrics),
		threadkit.WithRepeat(threadkit.RepeatFunc(func() (time.Duration, bool) { return 0, true })),
		threadkit.WithHooks(threadkit.Hooks{
			OnFinished: func() { workerLog.Info("consumer finished", zap.Int("unprocessed", jobs.Len())) },
		}),
	)

	producer.Start()
	consumer.Start()
	log.Info("pipeline started",
		zap.Duration("interval", cfg.Poller.Interval),
		zap.Int("maxCount", cfg.Poller.MaxCount),
		zap.Stringer("backoff", cfg.Backoff.Method),
	)

	ticker := time.NewTicker(cfg.DrainInterval)
	defer ticker.Stop()

loop:
	for {
		select {
		case <-gctx.Done():
			break loop
		case <-producer.Done():
			log.Info("producer finished", zap.Int("polls", producer.Count()))
			break loop
		case <-ticker.C:
			logs.Drain()
		}
	}

	// Stop producing and let the consumer work through the backlog before
	// closing the queue; a closed queue refuses every further receive.
	producer.StopAndJoin()

	joinCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	waitUntil(joinCtx, jobs.Empty, func() { logs.Drain() })

	jobs.Close()
	if dropped := jobs.Drain(); len(dropped) > 0 {
		log.Warn("jobs dropped at shutdown", zap.Int("count", len(dropped)))
	}

	waitUntil(joinCtx, func() bool { return isDone(consumer) }, func() { logs.Drain() })
	if err := consumer.StopAndJoinContext(joinCtx); err != nil {
		log.Warn("consumer did not stop in time", zap.Error(err))
	}

	logs.Close()
	logs.Drain()

	stop()
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	log.Info("shutdown complete")
	return nil
}

// waitUntil polls cond every 50ms, calling tick in between, until cond
// holds or ctx ends.
func waitUntil(ctx context.Context, cond func() bool, tick func()) {
	t := time.NewTicker(50 * time.Millisecond)
	defer t.Stop()

	for !cond() {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}

func isDone(t *threadkit.Thread) bool {
	select {
	case <-t.Done():
		return true
	default:
		return false
	}
}

// process handles one job, retrying transient failures with a fresh
// strategy built from bc.
func process(ctx context.Context, job int, bc backoff.Config, failRate float64, log *zap.Logger) error {
	strategy, err := backoff.FromConfig(bc)
	if err != nil {
		return err
	}

	attempts := 0
	err = backoff.Retry(ctx, strategy, func() error {
		attempts++
		if rand.Float64() < failRate {
			return errTransient
		}
		return nil
	}, func(err error, next time.Duration) {
		log.Warn("job attempt failed",
			zap.Int("job", job),
			zap.Int("attempt", attempts),
			zap.Duration("retryIn", next),
			zap.Error(err),
		)
	})
	if err != nil {
		return fmt.Errorf("job %d after %d attempts: %w", job, attempts, err)
	}

	log.Info("job processed", zap.Int("job", job), zap.Int("attempts", attempts))
	return nil
}

func serveMetrics(ctx context.Context, g *errgroup.Group, addr string, reg *prometheus.Registry, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Info("serving metrics", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
}
