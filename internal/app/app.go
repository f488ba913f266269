package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/smilecook/internal/auth"
	"github.com/hitoshi/smilecook/internal/config"
	"github.com/hitoshi/smilecook/internal/database"
	"github.com/hitoshi/smilecook/internal/handler"
	"github.com/hitoshi/smilecook/internal/logger"
	"github.com/hitoshi/smilecook/internal/mail"
	"github.com/hitoshi/smilecook/internal/metrics"
	"github.com/hitoshi/smilecook/internal/middleware"
	"github.com/hitoshi/smilecook/internal/policy"
	"github.com/hitoshi/smilecook/internal/recipe"
	"github.com/hitoshi/smilecook/internal/repository"
	"github.com/hitoshi/smilecook/internal/security"
	"github.com/hitoshi/smilecook/internal/token"
	"github.com/hitoshi/smilecook/internal/user"
	"github.com/hitoshi/smilecook/internal/worker/cleanup"
)

// dbPingTimeout は起動時のDB疎通確認のタイムアウト。
const dbPingTimeout = 5 * time.Second

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップし、環境変数からConfigを読み込んだ後にLOG_LEVELを反映する。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 3. 設定されたログレベルで再構成
	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	cmd, err := ParseCommand(args)
	if err != nil {
		return err
	}

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
		slog.String("port", cfg.ServerPort),
		slog.String("base_url", cfg.BaseURL),
		slog.String("revocation_backend", cfg.RevocationBackend),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandMigrate:
		return runMigrate(cfg)
	default:
		return runServe(cfg)
	}
}

// openDatabase はDB接続を開き、疎通を確認する。
func openDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := database.Open(cfg.DatabaseURL, database.PoolConfig{
		MaxOpenConns:    cfg.DBMaxOpenConns,
		MaxIdleConns:    cfg.DBMaxIdleConns,
		ConnMaxLifetime: cfg.DBConnMaxLifetime,
	})
	if err != nil {
		return nil, err
	}

	if err := database.Ping(context.Background(), db, dbPingTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

// newRevocationStore は設定されたバックエンドの失効ストアを生成する。
// 返却するclose関数はシャットダウン時に呼び出す。
func newRevocationStore(ctx context.Context, cfg *config.Config, db *sql.DB) (token.RevocationStore, func(), error) {
	switch cfg.RevocationBackend {
	case config.RevocationBackendPostgres:
		return repository.NewPostgresRevokedTokenRepo(db), func() {}, nil
	case config.RevocationBackendRedis:
		store, err := token.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { _ = store.Close() }, nil
	default:
		store := token.NewMemoryStore(cfg.RevocationSweepInterval)
		return store, store.Stop, nil
	}
}

// newMailPublisher はAMQP_URLが設定されていればRabbitMQ、なければログ出力のPublisherを返す。
func newMailPublisher(cfg *config.Config) (mail.Publisher, func(), error) {
	if cfg.AMQPURL == "" {
		slog.Warn("AMQP_URL is not set; activation mails are written to the log")
		return mail.NewLogPublisher(slog.Default()), func() {}, nil
	}

	p, err := mail.NewRabbitMQPublisher(cfg.AMQPURL, cfg.AMQPQueue)
	if err != nil {
		return nil, nil, err
	}
	return p, p.Close, nil
}

// runServe はAPIサーバーモードで起動する。
// DB接続を開き、全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established")

	// 2. リポジトリとメトリクスの初期化
	userRepo := repository.NewPostgresUserRepo(db)
	recipeRepo := repository.NewPostgresRecipeRepo(db)
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)

	// 3. 失効ストアとメール送信の初期化
	store, closeStore, err := newRevocationStore(context.Background(), cfg, db)
	if err != nil {
		return fmt.Errorf("failed to initialize revocation store: %w", err)
	}
	defer closeStore()

	publisher, closePublisher, err := newMailPublisher(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize mail publisher: %w", err)
	}
	defer closePublisher()

	// 4. ドメインサービスの初期化
	hasher := auth.NewBcryptHasher(0)
	tokenService := token.NewService(token.Config{
		Secret:     []byte(cfg.JWTSecret),
		Issuer:     cfg.JWTIssuer,
		AccessTTL:  cfg.AccessTokenTTL,
		RefreshTTL: cfg.RefreshTokenTTL,
	}, store, collector, slog.Default())
	authService := auth.NewService(userRepo, hasher, tokenService, collector)
	userService := user.NewService(
		userRepo, hasher,
		user.NewActivationTokens([]byte(cfg.ActivationSecret), cfg.ActivationTTL),
		publisher, cfg.BaseURL,
	)
	recipeService := recipe.NewService(
		recipeRepo, userRepo,
		policy.New(cfg.RecipeHideUnpublished),
		security.NewTextSanitizer(),
	)

	// 5. レートリミッターの初期化
	searchLimiter := middleware.NewRateLimiter("recipe_search", middleware.SearchRateLimiterConfig(), middleware.ClientIPKey)
	defer searchLimiter.Stop()
	generalLimiter := middleware.NewRateLimiter("general", middleware.GeneralRateLimiterConfig(cfg.RateLimitGeneral), middleware.UserIDKey)
	defer generalLimiter.Stop()

	// 6. ルーターの構築
	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		HTTPRecorder:      collector,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		SearchLimiter:     searchLimiter,
		GeneralLimiter:    generalLimiter,

		HealthChecker:  db,
		MetricsHandler: metrics.Handler(prometheus.DefaultGatherer),

		LoginService: authService,
		TokenService: tokenService,

		RecipeService: recipeService,
		UserService:   userService,
	})

	// 7. HTTPサーバーの起動
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server listen error: %w", err)
	case <-stop:
	}
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// DB接続を開き、期限切れ失効記録のクリーンアップを定期実行する。
// SIGINTまたはSIGTERMシグナルを受信するとシャットダウンする。
func runWorker(cfg *config.Config) error {
	if cfg.RevocationBackend != config.RevocationBackendPostgres {
		slog.Warn("worker purges the postgres revocation table; other backends expire entries on their own",
			slog.String("revocation_backend", cfg.RevocationBackend),
		)
	}

	// 1. DB接続
	db, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("database connection established (worker)")

	// 2. クリーンアップジョブの初期化
	collector := metrics.NewCollector(prometheus.DefaultRegisterer)
	cleanupJob := cleanup.NewCleanupJob(db, collector, slog.Default())

	// グレースフルシャットダウンのためのシグナルハンドリング
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	// クリーンアップジョブをメインgoroutineで実行（ブロッキング）
	cleanupJob.Start(ctx, cfg.CleanupInterval)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// すべての未適用マイグレーションを順番に適用する。
func runMigrate(cfg *config.Config) error {
	slog.Info("running database migrations",
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	version, err := database.RunMigrations(cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully", slog.Uint64("schema_version", uint64(version)))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	endpoint := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(endpoint)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLのパスワードをマスクする。
func maskDatabaseURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "***"
	}
	return u.Redacted()
}
