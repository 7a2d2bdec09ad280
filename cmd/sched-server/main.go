package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/signalsfoundry/rtsched/core"
	"github.com/signalsfoundry/rtsched/internal/logging"
	"github.com/signalsfoundry/rtsched/internal/observability"
	"github.com/signalsfoundry/rtsched/internal/rpc"
	"github.com/signalsfoundry/rtsched/internal/sim/batch"
	"github.com/signalsfoundry/rtsched/kb"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/grpc"
)

// Config holds everything run needs. Flags override environment values,
// which override the defaults below.
type Config struct {
	ListenAddress  string
	MetricsAddress string
	LogLevel       string
	LogFormat      string
	TaskSetsDir    string
	MaxHorizon     int
	Tracing        observability.TracingConfig
}

func defaultConfig() Config {
	return Config{
		ListenAddress:  ":50061",
		MetricsAddress: ":9091",
		LogLevel:       "info",
		LogFormat:      "text",
		TaskSetsDir:    "configs/tasksets",
		MaxHorizon:     core.DefaultMaxHorizon,
	}
}

// configFromEnv applies SCHED_* variables on top of the defaults.
func configFromEnv(getenv func(string) string) Config {
	cfg := defaultConfig()
	if v := getenv("SCHED_LISTEN_ADDR"); v != "" {
		cfg.ListenAddress = v
	}
	if v, ok := lookupSet(getenv, "SCHED_METRICS_ADDR"); ok {
		cfg.MetricsAddress = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}
	if v, ok := lookupSet(getenv, "SCHED_TASKSETS_DIR"); ok {
		cfg.TaskSetsDir = v
	}
	if v := getenv("SCHED_MAX_HORIZON"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MaxHorizon = n
		}
	}
	return cfg
}

// lookupSet treats "-" as an explicit empty value so addresses and
// directories can be disabled from the environment.
func lookupSet(getenv func(string) string, key string) (string, bool) {
	v := getenv(key)
	if v == "" {
		return "", false
	}
	if v == "-" {
		return "", true
	}
	return v, true
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "failed to load .env: %v\n", err)
	}

	cfg := configFromEnv(os.Getenv)
	flag.StringVar(&cfg.ListenAddress, "grpc-addr", cfg.ListenAddress, "TCP address the scheduler gRPC server listens on")
	flag.StringVar(&cfg.MetricsAddress, "metrics-addr", cfg.MetricsAddress, "HTTP address for Prometheus /metrics (empty disables)")
	flag.StringVar(&cfg.TaskSetsDir, "tasksets", cfg.TaskSetsDir, "Directory of task-set JSON files to preload (empty disables)")
	flag.IntVar(&cfg.MaxHorizon, "max-horizon", cfg.MaxHorizon, "Largest hyperperiod, in ticks, the server will simulate")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "text or json")
	flag.Parse()
	cfg.Tracing = observability.TracingConfigFromEnv()

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, AddSource: true})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lis, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		log.Error(ctx, "failed to listen for gRPC", logging.String("addr", cfg.ListenAddress), logging.Err(err))
		os.Exit(1)
	}

	if err := run(ctx, cfg, log, lis); err != nil {
		log.Error(ctx, "scheduler server exited", logging.Err(err))
		os.Exit(1)
	}
}

// run serves the scheduler API on lis until ctx is cancelled.
func run(ctx context.Context, cfg Config, log logging.Logger, lis net.Listener) error {
	if log == nil {
		log = logging.Noop()
	}

	shutdownTracing, err := observability.InitTracing(ctx, cfg.Tracing, log)
	if err != nil {
		return fmt.Errorf("init tracing: %w", err)
	}
	defer observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)

	reg := prometheus.NewRegistry()
	rpcMetrics, err := observability.NewRPCCollector(reg)
	if err != nil {
		return fmt.Errorf("init rpc metrics: %w", err)
	}
	simMetrics, err := observability.NewSimulationCollector(reg)
	if err != nil {
		return fmt.Errorf("init simulation metrics: %w", err)
	}

	engine := core.NewEngine(
		core.WithLogger(log),
		core.WithRunRecorder(simMetrics),
		core.WithMaxHorizon(cfg.MaxHorizon),
	)
	runner := batch.NewRunner(engine, log, batch.WithDurationRecorder(simMetrics))
	store := kb.NewKnowledgeBase(rpcMetrics)
	unsubscribe := store.Subscribe(func(ev kb.Event) {
		log.Debug(context.Background(), "task set store changed",
			logging.String("event", ev.Type.String()),
			logging.TaskSet(ev.TaskSet.Name),
		)
	})
	defer unsubscribe()
	loadTaskSets(ctx, log, store, cfg.TaskSetsDir)

	server := grpc.NewServer(
		grpc.StatsHandler(otelgrpc.NewServerHandler()),
		grpc.ChainUnaryInterceptor(
			rpc.RequestIDUnaryServerInterceptor(log),
			rpc.TracingUnaryServerInterceptor(),
			rpcMetrics.UnaryServerInterceptor(),
		),
	)
	rpc.RegisterSchedulerServer(server, rpc.NewSchedulerService(engine, runner, store, log))

	metricsSrv := serveMetrics(cfg.MetricsAddress, rpcMetrics, log)

	serveErr := make(chan error, 1)
	log.Info(ctx, "starting scheduler gRPC server", logging.String("addr", lis.Addr().String()))
	go func() {
		serveErr <- server.Serve(lis)
	}()

	var result error
	select {
	case <-ctx.Done():
		log.Info(context.Background(), "shutting down scheduler server")
		server.GracefulStop()
		<-serveErr
	case err := <-serveErr:
		if err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			result = fmt.Errorf("serve: %w", err)
		}
	}

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	return result
}

func serveMetrics(addr string, collector *observability.RPCCollector, log logging.Logger) *http.Server {
	if addr == "" || collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.Err(err))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}

// loadTaskSets stores every *.json file under dir. Bad files are skipped
// with a warning.
func loadTaskSets(ctx context.Context, log logging.Logger, store *kb.KnowledgeBase, dir string) int {
	if dir == "" || store == nil {
		return 0
	}
	paths, err := filepath.Glob(filepath.Join(dir, "*.json"))
	if err != nil || len(paths) == 0 {
		log.Warn(ctx, "no task sets preloaded", logging.String("dir", dir))
		return 0
	}
	sort.Strings(paths)

	added := 0
	for _, path := range paths {
		if err := loadTaskSetFile(store, path); err != nil {
			log.Warn(ctx, "skipping task set", logging.String("path", path), logging.Err(err))
			continue
		}
		added++
	}
	log.Info(ctx, "loaded task sets", logging.String("dir", dir), logging.Int("count", added))
	return added
}

func loadTaskSetFile(store *kb.KnowledgeBase, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	ts, err := core.LoadTaskSet(f)
	if err != nil {
		return err
	}
	if ts.Name == "" {
		ts.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	if err := core.ValidateTasks(ts.Tasks); err != nil {
		return err
	}
	return store.AddTaskSet(*ts)
}
