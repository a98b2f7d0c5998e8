package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grader/internal/api"
	"grader/internal/common/db"
	"grader/internal/common/mq"
	"grader/internal/config"
	"grader/internal/judge/consumer"
	"grader/internal/judge/repository"
	submitctl "grader/internal/submit/controller"
	taskctl "grader/internal/task/controller"
	taskservice "grader/internal/task/service"
	"grader/pkg/utils/logger"
)

const (
	// All submissions flow through this single work queue.
	judgeQueue = "queue"

	defaultShutdownTimeout = 10 * time.Second
)

func main() {
	root := flag.String("root", ".", "Working directory holding config.json and tasks/")
	flag.Parse()

	if err := logger.Init(logger.Config{
		Level:  os.Getenv("LOG_LEVEL"),
		Format: "json",
	}); err != nil {
		fmt.Fprintf(os.Stderr, "init logger failed: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	if err := run(*root); err != nil {
		logger.Error(context.Background(), "judge service stopped", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

func run(root string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load(root)
	if err != nil {
		return err
	}

	pg, err := db.NewPostgres(cfg.PostgresURL)
	if err != nil {
		return err
	}
	defer func() { _ = pg.Close() }()

	repo := repository.NewSubmissionRepository(pg)
	repo.StartHeartbeat(ctx, repository.DefaultHeartbeatInterval)

	queue, err := mq.Connect(ctx, cfg.RabbitMQURL)
	if err != nil {
		return err
	}
	defer func() { _ = queue.Close() }()
	if err := queue.DeclareQueue(ctx, judgeQueue); err != nil {
		return err
	}

	workerErrs, err := consumer.SpawnWorkers(ctx, queue, judgeQueue, cfg, repo, root)
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	taskService := taskservice.NewTaskService(root)
	router := api.NewRouter(api.Deps{
		Submit:    submitctl.NewSubmitController(cfg, taskService, queue, judgeQueue),
		Task:      taskctl.NewTaskController(taskService),
		AuthToken: cfg.AuthToken,
	})

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}
	listener, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return err
	}

	httpErrs := make(chan error, 1)
	go func() {
		logger.Info(ctx, "http server started", zap.String("addr", cfg.HTTPAddr))
		httpErrs <- httpServer.Serve(listener)
	}()
	logger.Info(ctx, "judge service started",
		zap.Int("workers", cfg.Judge.MaxWorker),
		zap.String("queue", judgeQueue),
	)

	shutdownCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	select {
	case err := <-workerErrs:
		// A worker exits only on broker or store loss. Crash so the
		// supervisor restarts the whole process with fresh connections.
		runErr = err
	case err := <-httpErrs:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			runErr = err
		}
	case <-shutdownCtx.Done():
		logger.Info(ctx, "shutdown signal received")
	}

	timeoutCtx, cancelTimeout := context.WithTimeout(context.Background(), defaultShutdownTimeout)
	defer cancelTimeout()
	if err := httpServer.Shutdown(timeoutCtx); err != nil {
		logger.Error(ctx, "http server shutdown failed", zap.Error(err))
	}
	return runErr
}
