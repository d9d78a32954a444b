package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"nudgebot/internal/bot"
	"nudgebot/internal/config"
	"nudgebot/internal/logging"
	"nudgebot/internal/notify"
	"nudgebot/internal/repository"
	"nudgebot/internal/schedule"
	"nudgebot/internal/service"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		bootLog := logging.New("info")
		bootLog.Fatal().Err(err).Msg("config")
	}
	log := logging.New(cfg.LogLevel)

	defaultLoc, err := time.LoadLocation(cfg.DefaultTZ)
	if err != nil {
		log.Fatal().Err(err).Str("zone", cfg.DefaultTZ).Msg("load default timezone")
	}

	db, err := repository.NewDB(cfg.DatabaseURL, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	userRepo := repository.NewUserRepository(db)
	habitRepo := repository.NewHabitRepository(db)
	todoRepo := repository.NewTodoRepository(db)
	checkinRepo := repository.NewCheckinRepository(db)
	digestRepo := repository.NewDigestRepository(db)

	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		log.Fatal().Err(err).Msg("create bot api")
	}

	clock := service.SystemClock()
	notifier := notify.NewTelegram(api, log)
	habitSvc := service.NewHabitService(habitRepo, checkinRepo, clock, cfg.DefaultTZ)
	todoSvc := service.NewTodoService(todoRepo, clock)

	reminders := service.NewReminderScheduler(habitRepo, todoRepo, userRepo, notifier, clock, defaultLoc, log)
	catchup := service.NewCatchupDigestScheduler(
		habitRepo, checkinRepo, digestRepo, userRepo, notifier, clock, defaultLoc,
		schedule.MustTimeOfDay(cfg.DigestSendAfter, schedule.TimeOfDay{Hour: 9}), log,
	)

	scheduler := service.NewSchedulerService(defaultLoc, log)
	if _, err := scheduler.ScheduleInterval(cfg.ReminderTick, func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		reminders.Tick(tickCtx)
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule reminder loop")
	}
	if _, err := scheduler.ScheduleInterval(cfg.CatchupTick, func() {
		tickCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		catchup.Tick(tickCtx)
	}); err != nil {
		log.Fatal().Err(err).Msg("schedule catchup loop")
	}
	scheduler.Start()
	defer scheduler.Stop()

	telegramBot := bot.New(api, userRepo, habitSvc, todoSvc, log)
	log.Info().Msg("nudgebot started")
	if err := telegramBot.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal().Err(err).Msg("bot stopped with error")
	}
	log.Info().Msg("shutdown complete")
}
