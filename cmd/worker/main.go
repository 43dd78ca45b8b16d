package main // Background worker: runs announcement dispatch tasks off the API path

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/config"
	"github.com/avivron/weddinghub/internal/database"
	"github.com/avivron/weddinghub/internal/jobs"
	"github.com/avivron/weddinghub/internal/notify"
	"github.com/avivron/weddinghub/internal/queue"
	"github.com/avivron/weddinghub/internal/repository"
	"github.com/avivron/weddinghub/internal/service"
)

func main() {
	_ = godotenv.Load()

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "weddinghub-worker").Logger()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	versions := cache.NewVersions(rdb, log)

	events := repository.NewEventRepo(db)
	invitations := repository.NewInvitationRepo(db)
	mailLogs := repository.NewMailLogRepo(db)
	announcements := repository.NewAnnouncementRepo(db)

	senders := buildSenders(cfg, log)

	pub := queue.NewPublisher(cfg.AMQPURL, log)
	limiter := service.NewNotifyLimiter(mailLogs, cfg.MaxNotifyPerDay, nil)
	dispatcher := service.NewDispatcher(announcements, events, invitations, limiter, mailLogs,
		senders, versions, pub, cfg.DispatchWorkers, cfg.PublicBaseURL, log)

	srv := asynq.NewServer(
		asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword},
		asynq.Config{
			// One dispatch run already fans out internally, so a small
			// number of concurrent tasks is plenty.
			Concurrency: 4,
			Queues:      map[string]int{"dispatch": 10},
		},
	)

	log.Info().Str("redis", cfg.RedisAddr).Msg("worker starting")
	if err := srv.Run(jobs.Mux(jobs.NewHandler(dispatcher, log))); err != nil {
		log.Fatal().Err(err).Msg("worker stopped")
	}
}

// buildSenders mirrors the server's channel wiring so worker-run
// dispatches send over the same providers.
func buildSenders(cfg config.Config, log zerolog.Logger) notify.Registry {
	var senders []notify.Sender
	if cfg.EmailAPIURL != "" {
		senders = append(senders, notify.NewEmailSender(cfg.EmailAPIURL, cfg.EmailAPIKey, cfg.EmailFrom))
	}
	if cfg.SMSAPIURL != "" {
		senders = append(senders, notify.NewSMSSender(cfg.SMSAPIURL, cfg.SMSAPIKey, cfg.SMSSender))
	}
	if cfg.WhatsAppDB != "" {
		wa, err := notify.NewWhatsAppSender(cfg.WhatsAppDB, log)
		if err != nil {
			log.Error().Err(err).Msg("whatsapp session store open failed, channel disabled")
		} else if err := wa.Connect(context.Background()); err != nil {
			log.Error().Err(err).Msg("whatsapp connect failed, channel disabled")
		} else {
			senders = append(senders, wa)
		}
	}
	return notify.NewRegistry(senders...)
}
