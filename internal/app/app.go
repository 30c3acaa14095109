package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/venille/internal/authstore"
	"github.com/hitoshi/venille/internal/config"
	"github.com/hitoshi/venille/internal/conversation"
	"github.com/hitoshi/venille/internal/database"
	"github.com/hitoshi/venille/internal/education"
	"github.com/hitoshi/venille/internal/handler"
	"github.com/hitoshi/venille/internal/i18n"
	"github.com/hitoshi/venille/internal/logger"
	"github.com/hitoshi/venille/internal/metrics"
	"github.com/hitoshi/venille/internal/middleware"
	"github.com/hitoshi/venille/internal/repository"
	"github.com/hitoshi/venille/internal/security"
	"github.com/hitoshi/venille/internal/supervisor"
	"github.com/hitoshi/venille/internal/transport"
	"github.com/hitoshi/venille/internal/worker/cleanup"
	"github.com/hitoshi/venille/internal/worker/outbox"
	"github.com/hitoshi/venille/internal/worker/reminder"
)

const (
	dbPingTimeout   = 5 * time.Second
	cleanupInterval = 24 * time.Hour
)

// Init はアプリケーションの初期化を行う。
// 環境変数からConfigを読み込み、JSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再セットアップする
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。SIGINTまたはSIGTERMでグレースフルシャットダウンを行う。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return run(ctx, w, args)
}

func run(ctx context.Context, w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("app_env", cfg.AppEnv),
		slog.Bool("hosted", cfg.Hosted),
		slog.String("session_store", cfg.SessionStore),
	)

	switch cmd {
	case CommandMigrate:
		return runMigrate(cfg)
	case CommandLogout:
		return runLogout(ctx, cfg)
	default:
		return runBot(ctx, cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := database.Ping(ctx, db, dbPingTimeout); err != nil {
		db.Close()
		return nil, err
	}

	slog.Info("database connection established")
	return db, nil
}

// runBot はボット本体を起動する。
// トランスポート監視、会話エンジン、送信キュー・リマインダー・クリーンアップの各ワーカー、
// 運用HTTPサーバーをワイヤリングし、ctxが終了するまで実行する。
func runBot(ctx context.Context, cfg *config.Config) error {
	log := slog.Default()

	// 1. DB接続
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	if cfg.AutoMigrate {
		if err := runMigrate(cfg); err != nil {
			return err
		}
	}

	// 2. リポジトリの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	symptomRepo := repository.NewPostgresSymptomRepo(db)
	feedbackRepo := repository.NewPostgresFeedbackRepo(db)
	orderRepo := repository.NewPostgresOrderRepo(db)
	outboxRepo := repository.NewPostgresOutboxRepo(db)
	authRepo := repository.NewPostgresAuthSessionRepo(db)
	eventRepo := repository.NewPostgresEventLogRepo(db)

	// 3. セッションストアの初期化
	store, err := authstore.New(authstore.Options{
		Kind:      cfg.SessionStore,
		Dir:       cfg.SessionDir,
		SessionID: cfg.SessionID,
		Repo:      authRepo,
		Logger:    log,
	})
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	// 4. メトリクスの初期化
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(reg)

	// 5. トランスポートとスーパーバイザーの初期化
	client := transport.NewBridgeClient(cfg.TransportURL, cfg.TransportToken, log)
	sup := supervisor.New(client, store, collector, log, supervisor.Config{
		DisconnectBackoff: cfg.DisconnectBackoff,
		ErrorBackoff:      cfg.ErrorBackoff,
		MaxBackoff:        cfg.MaxBackoff,
		CloseTimeout:      cfg.ShutdownTimeout,
		SendTimeout:       cfg.SendTimeout,
		Interactive:       !cfg.Hosted,
		CredentialFile:    cfg.CredentialFile,
	}, os.Stdout)

	// 6. 会話エンジンとディスパッチャーの初期化
	catalog := i18n.Default()
	feedService := education.NewFeedService(
		security.NewURLGuard().Client(cfg.FetchTimeout),
		cfg.EducationFeedURL, cfg.FetchMaxSize, cfg.FetchCacheTTL, log,
	)
	engine := conversation.NewEngine(conversation.Options{
		Sender:          sup,
		Users:           userRepo,
		Symptoms:        symptomRepo,
		Feedback:        feedbackRepo,
		Orders:          orderRepo,
		Catalog:         catalog,
		Sanitizer:       security.NewTextSanitizer(0),
		Education:       feedService,
		Metrics:         collector,
		Logger:          log,
		SendTimeout:     cfg.SendTimeout,
		VendorRecipient: cfg.VendorRecipient,
		SalesContactURL: cfg.SalesContactURL,
	})
	dispatcher := conversation.NewDispatcher(engine, log)
	sup.OnMessage(dispatcher.Submit)

	// 7. ワーカーの初期化
	reminderJob, err := reminder.NewJob(userRepo, sup, catalog, collector, log, cfg.ReminderCron, cfg.ReminderLocation)
	if err != nil {
		return err
	}
	outboxWorker := outbox.NewWorker(outboxRepo, sup, collector, log, outbox.Config{
		BatchSize:    cfg.OutboxBatchSize,
		MaxAttempts:  cfg.OutboxMaxAttempts,
		SendInterval: cfg.OutboxSendInterval,
	})
	cleanupJob := cleanup.NewCleanupJob(db, log)
	if cfg.OutboxRetentionDays > 0 {
		cleanupJob.RetentionDays = cfg.OutboxRetentionDays
	}

	// 8. 運用HTTPサーバーの構築
	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Ops:         handler.NewOpsHandler(db, sup, outboxRepo, log),
		Metrics:     metrics.Handler(reg),
		Logger:      log,
		OpsToken:    cfg.OpsToken,
		RateLimiter: rateLimiter,
		Panics:      collector,
	})
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// 9. 各コンポーネントの起動
	workerCtx, cancelWorkers := context.WithCancel(context.Background())
	defer cancelWorkers()
	supCtx, cancelSup := context.WithCancel(context.Background())
	defer cancelSup()

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		sup.Run(supCtx)
	}()
	go func() {
		defer wg.Done()
		outboxWorker.Start(workerCtx, cfg.OutboxInterval)
	}()
	go func() {
		defer wg.Done()
		cleanupJob.Start(workerCtx, cleanupInterval)
	}()

	if err := reminderJob.Start(workerCtx); err != nil {
		cancelWorkers()
		cancelSup()
		wg.Wait()
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("ops server starting", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		slog.Info("shutting down bot...")
	case err := <-serverErr:
		slog.Error("server listen error", slog.String("error", err.Error()))
		runErr = fmt.Errorf("ops server failed: %w", err)
	}

	// 10. グレースフルシャットダウン
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	cancelWorkers()
	reminderJob.Stop(shutdownCtx)

	if err := eventRepo.Create(shutdownCtx, "shutdown", shutdownReason(runErr)); err != nil {
		slog.Warn("シャットダウンログの記録に失敗しました", slog.String("error", err.Error()))
	}

	if err := dispatcher.Close(shutdownCtx); err != nil {
		slog.Warn("処理中のメッセージを待機中にタイムアウトしました",
			slog.Int("pending", dispatcher.Pending()),
			slog.String("error", err.Error()),
		)
	}

	cancelSup()
	if err := sup.Stop(shutdownCtx); err != nil {
		slog.Warn("トランスポートのクローズに失敗しました", slog.String("error", err.Error()))
	}

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("ops server shutdown failed", slog.String("error", err.Error()))
	}

	wg.Wait()

	slog.Info("bot stopped gracefully")
	return runErr
}

// shutdownReason はイベントログに記録するシャットダウンの原因を返す。
// runErrがnilの場合はシグナルによる停止とみなす。
func shutdownReason(runErr error) string {
	if runErr == nil {
		return "signal received"
	}
	return runErr.Error()
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	if err := database.RunMigrations(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runLogout は保存済みの認証セッションをすべての層から削除する。
// 次回起動時は資格情報（QR）の再取得から始まる。
func runLogout(ctx context.Context, cfg *config.Config) error {
	opts := authstore.Options{
		Kind:      cfg.SessionStore,
		Dir:       cfg.SessionDir,
		SessionID: cfg.SessionID,
		Logger:    slog.Default(),
	}

	if cfg.SessionStore != authstore.KindLocal {
		db, err := openDatabase(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		opts.Repo = repository.NewPostgresAuthSessionRepo(db)
	}

	store, err := authstore.New(opts)
	if err != nil {
		return fmt.Errorf("failed to create session store: %w", err)
	}

	if err := store.Remove(ctx); err != nil {
		return fmt.Errorf("failed to remove session: %w", err)
	}

	slog.Info("session removed", slog.String("session_id", cfg.SessionID))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
