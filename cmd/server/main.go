package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/study-room-reservation/internal/config"
	"github.com/iliyamo/study-room-reservation/internal/database"
	"github.com/iliyamo/study-room-reservation/internal/handler"
	"github.com/iliyamo/study-room-reservation/internal/logger"
	"github.com/iliyamo/study-room-reservation/internal/middleware"
	"github.com/iliyamo/study-room-reservation/internal/qrtoken"
	"github.com/iliyamo/study-room-reservation/internal/queue"
	"github.com/iliyamo/study-room-reservation/internal/repository"
	"github.com/iliyamo/study-room-reservation/internal/router"
	"github.com/iliyamo/study-room-reservation/internal/scheduler"
	"github.com/iliyamo/study-room-reservation/internal/service"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()

	log := logger.New(cfg.Env)
	defer func() { _ = log.Sync() }()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("database connection failed", zap.Error(err))
	}
	defer func() { _ = db.Close() }()

	// Redis is optional; rate limiting and response caching degrade to
	// no-ops without it.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and caching disabled")
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	rooms := repository.NewRoomRepo(db)
	seats := repository.NewSeatRepo(db)
	slots := repository.NewSlotRepo(db)
	reservations := repository.NewReservationRepo(db)
	qrcodes := repository.NewQRCodeRepo(db)
	checkIns := repository.NewCheckInRepo(db)
	notifications := repository.NewNotificationRepo(db)
	settings := repository.NewSettingRepo(db)

	codec := qrtoken.New(cfg.QRSecret, qrcodes)
	allocator := service.NewAllocator(slots, seats, users)
	presence := service.NewPresence(checkIns, codec, rooms, users)
	roomQR := service.NewRoomQR(codec, qrcodes, rooms, log)
	engine := service.NewViolationEngine(reservations, users, settings, queue.NewPublisher(), log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sched := scheduler.New(engine, roomQR, time.Duration(cfg.SweepIntervalSec)*time.Second, log)
	sched.Start(ctx)
	defer sched.Stop()

	go func() {
		if err := queue.StartViolationConsumer(); err != nil {
			log.Error("violation consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))
	e.Use(middleware.NewRedisCache(config.LoadCacheConfig(), rdb))

	router.Register(e, router.Handlers{
		Auth:        handler.NewAuthHandler(cfg, users, tokens),
		Booking:     handler.NewBookingHandler(allocator, rooms),
		CheckIn:     handler.NewCheckInHandler(presence),
		QR:          handler.NewQRHandler(roomQR),
		Reservation: handler.NewReservationHandler(reservations, notifications),
		Admin:       handler.NewAdminHandler(settings, reservations, users),
	}, cfg.JWTSecret)

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil {
			log.Info("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
