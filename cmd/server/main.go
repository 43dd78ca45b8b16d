package main // Entry point package

import (
	"context"
	"os"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/avivron/weddinghub/internal/cache"
	"github.com/avivron/weddinghub/internal/config"
	"github.com/avivron/weddinghub/internal/database"
	"github.com/avivron/weddinghub/internal/handler"
	"github.com/avivron/weddinghub/internal/jobs"
	"github.com/avivron/weddinghub/internal/notify"
	"github.com/avivron/weddinghub/internal/queue"
	"github.com/avivron/weddinghub/internal/repository"
	"github.com/avivron/weddinghub/internal/router"
	"github.com/avivron/weddinghub/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments use the environment

	log := zerolog.New(os.Stdout).With().Timestamp().Str("service", "weddinghub").Logger()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal().Err(err).Msg("database open failed")
	}
	defer db.Close()

	rdb := config.NewRedisClient() // nil when Redis is unreachable; features degrade
	versions := cache.NewVersions(rdb, log)

	// Repositories.
	guests := repository.NewGuestRepo(db)
	events := repository.NewEventRepo(db)
	invitations := repository.NewInvitationRepo(db)
	attendance := repository.NewAttendanceRepo(db)
	mailLogs := repository.NewMailLogRepo(db)
	announcements := repository.NewAnnouncementRepo(db)
	seating := repository.NewSeatingRepo(db)
	users := repository.NewUserRepo(db)
	tenants := repository.NewTenantRepo(db)

	// Outbound channels; a channel with no provider configured simply
	// has no sender registered and dispatches over it are rejected.
	senders := buildSenders(cfg, log)

	pub := queue.NewPublisher(cfg.AMQPURL, log)
	limiter := service.NewNotifyLimiter(mailLogs, cfg.MaxNotifyPerDay, nil)

	lifecycle := service.NewLifecycle(invitations, guests, attendance, versions, pub, uint32(cfg.MaxPartySize), log)
	guestSvc := service.NewGuests(guests, invitations, events, versions, log)
	seatingSvc := service.NewSeating(seating, events, guests, versions, log)
	announceSvc := service.NewAnnouncements(announcements, guests, versions, log)
	dispatcher := service.NewDispatcher(announcements, events, invitations, limiter, mailLogs,
		senders, versions, pub, cfg.DispatchWorkers, cfg.PublicBaseURL, log)

	var tasks *jobs.Client
	if rdb != nil {
		tasks = jobs.NewClient(cfg.RedisAddr, cfg.RedisPassword)
		defer tasks.Close()
	}

	// Broker consumer writes the guest activity log; runs for the
	// lifetime of the process.
	go func() {
		if err := queue.StartActivityConsumer(cfg.AMQPURL); err != nil {
			log.Error().Err(err).Msg("activity consumer stopped")
		}
	}()

	h := router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users),
		Tenant:        handler.NewTenantHandler(tenants),
		Guests:        handler.NewGuestHandler(guestSvc, lifecycle),
		Events:        handler.NewEventHandler(events, attendance),
		Public:        handler.NewPublicHandler(guestSvc, lifecycle, cfg.PublicBaseURL),
		Seating:       handler.NewSeatingHandler(seatingSvc),
		Announcements: handler.NewAnnouncementHandler(announceSvc, dispatcher, tasks),
		Notify:        handler.NewNotifyHandler(dispatcher, limiter, mailLogs),
		Cache:         handler.NewCacheHandler(versions),
	}

	e := echo.New()
	e.HideBanner = true
	router.RegisterRoutes(e)
	router.RegisterPublic(e, h, rdb)
	router.RegisterAdmin(e, h, cfg, rdb, versions)

	addr := ":" + cfg.Port
	log.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// buildSenders registers a sender per channel that has provider
// credentials.  WhatsApp additionally needs its session store to
// open and the device to connect; failures log and leave the channel
// unregistered rather than blocking startup.
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
