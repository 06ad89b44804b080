package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/buku-api/internal/application/einvoice"
	"github.com/jhoicas/buku-api/internal/bootstrap"
	httpRouter "github.com/jhoicas/buku-api/internal/interfaces/http"
	"github.com/jhoicas/buku-api/pkg/config"
	"github.com/jhoicas/buku-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.App.LogLevel,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	engine, err := bootstrap.NewEngine(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar motor de factura electrónica")
	}
	defer engine.Close()

	// Barrido periódico de envíos pendientes (un solo proceso).
	scheduler := einvoice.NewPollScheduler(engine.Reconciler, log.For("poll_scheduler"), 10*time.Minute)
	if err := scheduler.Start(cfg.EInvoice.PollSchedule); err != nil {
		log.Fatal().Err(err).Msg("scheduler de poll MyInvois")
	}
	defer scheduler.Stop()

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 60, // envío + poll inmediato a MyInvois
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())
	if cfg.App.Env == "development" {
		app.Use(fiberlogger.New())
	}

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Buku e-Invoice API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		pingCtx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()
		if err := engine.Pool.Ping(pingCtx); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "db": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "poll_schedule": cfg.EInvoice.PollSchedule})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Orchestrator: engine.Orchestrator,
		Reconciler:   engine.Reconciler,
		Settings:     engine.Settings,
		JWTSecret:    cfg.JWT.Secret,
	})

	stop, cancelSignals := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancelSignals()

	listenErr := make(chan error, 1)
	go func() { listenErr <- app.Listen(cfg.HTTP.Addr()) }()

	select {
	case err := <-listenErr:
		if err != nil {
			log.Error().Err(err).Str("addr", cfg.HTTP.Addr()).Msg("servidor HTTP finalizado")
		}
	case <-stop.Done():
		log.Info().Msg("señal de apagado recibida")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	log.Info().Msg("servicio de factura electrónica detenido")
}
