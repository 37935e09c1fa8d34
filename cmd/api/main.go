package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	goredis "github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-arena-booking/internal/api"
	"github.com/sanosuguru/go-arena-booking/internal/api/handler"
	"github.com/sanosuguru/go-arena-booking/internal/api/middleware"
	"github.com/sanosuguru/go-arena-booking/internal/application"
	"github.com/sanosuguru/go-arena-booking/internal/config"
	"github.com/sanosuguru/go-arena-booking/internal/domain/admin"
	"github.com/sanosuguru/go-arena-booking/internal/domain/booking"
	"github.com/sanosuguru/go-arena-booking/internal/domain/notification"
	"github.com/sanosuguru/go-arena-booking/internal/domain/pitch"
	"github.com/sanosuguru/go-arena-booking/internal/domain/transaction"
	"github.com/sanosuguru/go-arena-booking/internal/infrastructure/auth"
	"github.com/sanosuguru/go-arena-booking/internal/infrastructure/memory"
	"github.com/sanosuguru/go-arena-booking/internal/infrastructure/notify"
	"github.com/sanosuguru/go-arena-booking/internal/infrastructure/postgres"
	redisinfra "github.com/sanosuguru/go-arena-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/metrics"
	"github.com/sanosuguru/go-arena-booking/internal/pkg/telemetry"
	"github.com/sanosuguru/go-arena-booking/internal/worker"
)

const serviceName = "arena-booking"

// storage は選択したドライバーのリポジトリ一式
type storage struct {
	txManager transaction.Manager
	bookings  booking.Repository
	pitches   pitch.Repository
	directory admin.Directory
	ping      handler.Checker
	close     func()
}

func main() {
	// .env は任意
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Set(logger.NewLogger(cfg.Server.Env))
	defer logger.Sync()

	ctx := context.Background()
	shutdownTracing := telemetry.Setup(ctx, telemetry.Config{
		ServiceName: serviceName,
		Endpoint:    cfg.Telemetry.Endpoint,
		Insecure:    cfg.Telemetry.Insecure,
	})

	m := metrics.Init()

	store, err := openStorage(cfg)
	if err != nil {
		logger.Fatal("ストレージの初期化に失敗しました", zap.Error(err))
	}
	defer store.close()

	checks := map[string]handler.Checker{"store": store.ping}

	// Redis は任意。使えない場合はDBロックのみで動く
	var (
		lockManager redisinfra.LockManagerInterface
		cache       redisinfra.ScheduleCacheInterface
		redisClient *goredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = redisinfra.NewClient(&redisinfra.Config{
			Host: cfg.Redis.Host, Port: cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn("Redisに接続できないため分散ロックとキャッシュを無効にします", zap.Error(err))
		} else {
			defer redisClient.Close()
			lockManager = redisinfra.NewLockManager(redisClient)
			cache = redisinfra.NewDayScheduleCache(redisClient)
			checks["redis"] = func(ctx context.Context) error { return redisinfra.Ping(ctx, redisClient) }
		}
	}

	resolver, err := newResolver(cfg)
	if err != nil {
		logger.Fatal("認証の初期化に失敗しました", zap.Error(err))
	}

	publisher := newPublisher(cfg)
	dispatcher := application.NewDispatcher(newSender(cfg), publisher, cfg.Notify.Timeout, m)

	bookingService := application.NewBookingService(application.BookingServiceDeps{
		TxManager:   store.txManager,
		Repo:        store.bookings,
		Gate:        application.NewAdminGate(resolver, store.directory),
		LockManager: lockManager,
		Cache:       cache,
		Dispatcher:  dispatcher,
		Messages: application.NewMessageBuilder(cfg.Notify.OperatorEmail, application.PaymentDetails{
			Bank:          cfg.Notify.BankName,
			AccountName:   cfg.Notify.BankAccountName,
			AccountNumber: cfg.Notify.BankAccountNumber,
			BranchCode:    cfg.Notify.BankBranchCode,
			AccountType:   cfg.Notify.BankAccountType,
		}, cfg.Booking.ModificationCutoffDays),
		Policy:   cfg.Booking.Policy(),
		Location: cfg.Booking.Location(),
		Metrics:  m,
	})
	pitchService := application.NewPitchService(store.pitches)

	// Echo セットアップ
	e := echo.New()
	e.HideBanner = true
	e.Validator = api.NewValidator()
	e.HTTPErrorHandler = api.CustomHTTPErrorHandler
	middleware.SetupMiddleware(e, middleware.Options{RateLimit: cfg.Server.HTTPRateLimit, Metrics: m})

	handler.RegisterRoutes(e, handler.Handlers{
		Booking: handler.NewBookingHandler(bookingService),
		Admin:   handler.NewAdminHandler(bookingService),
		Pitch:   handler.NewPitchHandler(pitchService),
		Health:  handler.NewHealthHandler(checks),
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()),
		middleware.MetricsBasicAuth(cfg.Server.MetricsUser, cfg.Server.MetricsPassword))

	statsCollector := worker.NewBookingStatsCollector(bookingService, m, cfg.Worker.StatsInterval)
	go statsCollector.Start(ctx)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      otelhttp.NewHandler(e, serviceName),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		logger.Info("サーバーを起動します",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Server.Env),
			zap.String("storage", cfg.Storage.Driver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("サーバー起動エラー", zap.Error(err))
		}
	}()

	// シグナル待機
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("サーバーをシャットダウンしています...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("サーバーシャットダウンエラー", zap.Error(err))
	}
	statsCollector.Stop()

	// 送信中の通知を待ってから接続を閉じる
	dispatcher.Wait()
	if publisher != nil {
		if err := publisher.Close(); err != nil {
			logger.Warn("イベント発行の終了に失敗しました", zap.Error(err))
		}
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("トレースの終了に失敗しました", zap.Error(err))
	}

	logger.Info("サーバーが正常にシャットダウンしました")
}

func openStorage(cfg *config.Config) (*storage, error) {
	allowlist := memory.NewAdminDirectory(cfg.Auth.AdminEmails...)

	switch cfg.Storage.Driver {
	case "memory":
		logger.Warn("インメモリストアで起動します。再起動でデータは消えます")
		txm := memory.NewTxManager()
		return &storage{
			txManager: txm,
			bookings:  memory.NewBookingRepository(txm),
			pitches:   memory.NewPitchRepository(defaultPitch()),
			directory: allowlist,
			ping:      func(context.Context) error { return nil },
			close:     func() {},
		}, nil

	default:
		db, err := postgres.NewConnection(&cfg.Database)
		if err != nil {
			return nil, err
		}
		version, err := postgres.RunMigrations(db.DB, cfg.Storage.MigrationsPath)
		if err != nil {
			db.Close()
			return nil, err
		}
		logger.Info("マイグレーション適用済み", zap.Uint("version", version))

		timeout := cfg.Booking.StoreTimeout
		return &storage{
			txManager: postgres.NewTxManager(db),
			bookings:  postgres.NewBookingRepository(db, timeout),
			pitches:   postgres.NewPitchRepository(db, timeout),
			directory: auth.NewDirectoryChain(allowlist, postgres.NewAdminDirectory(db, timeout)),
			ping:      pinger(db),
			close:     func() { db.Close() },
		}, nil
	}
}

// defaultPitch はインメモリストア用のピッチ情報
func defaultPitch() *pitch.Pitch {
	return &pitch.Pitch{
		ID:          uuid.NewString(),
		PitchID:     1,
		Name:        "Main Arena",
		Description: "Indoor cricket arena with full-length netted pitch",
		Surface:     "Synthetic turf",
		Features:    []string{"Floodlights", "Bowling machine", "Change rooms"},
		Active:      true,
		CreatedAt:   time.Now(),
	}
}

func pinger(db *sqlx.DB) handler.Checker {
	return func(ctx context.Context) error { return postgres.Ping(ctx, db) }
}

// newResolver は JWT リゾルバーを作る。JWT_SECRET が未設定の場合、
// 本番では起動を止め、それ以外では一時的な鍵で開発用トークンを発行する
func newResolver(cfg *config.Config) (admin.IdentityResolver, error) {
	if cfg.Auth.JWTSecret != "" {
		return auth.NewJWTResolver(cfg.Auth.JWTSecret)
	}
	if cfg.Server.Env == "production" {
		return nil, auth.ErrEmptySecret
	}

	resolver, err := auth.NewJWTResolver(uuid.NewString())
	if err != nil {
		return nil, err
	}
	if len(cfg.Auth.AdminEmails) > 0 {
		token, err := resolver.Issue("dev-admin", cfg.Auth.AdminEmails[0], 24*time.Hour)
		if err != nil {
			return nil, err
		}
		logger.Warn("JWT_SECRET が未設定のため開発用トークンを発行しました",
			zap.String("email", cfg.Auth.AdminEmails[0]), zap.String("token", token))
	}
	return resolver, nil
}

func newSender(cfg *config.Config) notification.Sender {
	if !cfg.Notify.SMTPEnabled() {
		logger.Info("SMTP未設定のためメールはログに出力します")
		return notify.NewLogSender()
	}
	sender, err := notify.NewSMTPSender(notify.SMTPConfig{
		Host:     cfg.Notify.SMTPHost,
		Port:     cfg.Notify.SMTPPort,
		Username: cfg.Notify.SMTPUser,
		Password: cfg.Notify.SMTPPassword,
		From:     cfg.Notify.FromEmail,
	})
	if err != nil {
		logger.Warn("SMTP設定が不正なためメールはログに出力します", zap.Error(err))
		return notify.NewLogSender()
	}
	return sender
}

// newPublisher はイベント発行先を作る。接続できない場合はイベントを発行せずに動く
func newPublisher(cfg *config.Config) notification.Publisher {
	var (
		publisher notification.Publisher
		err       error
	)
	switch cfg.Notify.EventsDriver {
	case "rabbitmq":
		publisher, err = notify.NewRabbitPublisher(cfg.Notify.RabbitMQURL, cfg.Notify.RabbitMQExchange)
	case "kafka":
		publisher, err = notify.NewKafkaPublisher(cfg.Notify.KafkaBrokers, cfg.Notify.KafkaTopic)
	default:
		return nil
	}
	if err != nil {
		logger.Error("イベント発行先に接続できません", zap.String("driver", cfg.Notify.EventsDriver), zap.Error(err))
		return nil
	}
	logger.Info("イベント発行を有効にしました", zap.String("driver", cfg.Notify.EventsDriver))
	return publisher
}
