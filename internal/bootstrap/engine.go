package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jhoicas/buku-api/internal/application/einvoice"
	"github.com/jhoicas/buku-api/internal/infrastructure/kafka"
	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois"
	"github.com/jhoicas/buku-api/internal/infrastructure/myinvois/signer"
	"github.com/jhoicas/buku-api/internal/infrastructure/postgres"
	"github.com/jhoicas/buku-api/internal/infrastructure/vault"
	"github.com/jhoicas/buku-api/pkg/config"
	"github.com/jhoicas/buku-api/pkg/logger"
)

// Engine componentes del motor de factura electrónica, compartidos por la API y einvoicectl.
type Engine struct {
	Pool         *pgxpool.Pool
	Tokens       *einvoice.TokenManager
	Reconciler   *einvoice.Reconciler
	Orchestrator *einvoice.Orchestrator
	Settings     *einvoice.SettingsUseCase

	closers []func() error
}

// NewEngine conecta PostgreSQL y arma el motor completo a partir de la configuración.
// Sin KAFKA_BROKERS los eventos se descartan; sin EINVOICE_CERT_PATH los documentos van sin firma.
func NewEngine(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Engine, error) {
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
	}
	e := &Engine{Pool: pool}

	v, err := vault.New(cfg.EInvoice.SecretKey)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("vault: %w", err)
	}

	authority := myinvois.NewClient(myinvois.ClientConfig{
		SandboxBaseURL:    cfg.EInvoice.SandboxURL,
		ProductionBaseURL: cfg.EInvoice.ProductionURL,
		Timeout:           time.Duration(cfg.EInvoice.HTTPTimeoutSeconds) * time.Second,
	})

	var events einvoice.EventPublisher = einvoice.NoopPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		pub := kafka.NewEventPublisher(cfg.Kafka.Brokers, cfg.Kafka.EInvoiceTopic)
		events = pub
		e.closers = append(e.closers, pub.Close)
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.EInvoiceTopic).Msg("eventos MyInvois hacia Kafka")
	}

	configRepo := postgres.NewEInvoiceConfigRepository(pool)
	submissionRepo := postgres.NewEInvoiceSubmissionRepository(pool)
	invoiceRepo := postgres.NewInvoiceRepository(pool)
	creditNoteRepo := postgres.NewCreditNoteRepository(pool)
	customerRepo := postgres.NewCustomerRepository(pool)
	profileRepo := postgres.NewBusinessProfileRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	e.Tokens = einvoice.NewTokenManager(configRepo, authority, v, log.For("token_manager"))
	e.Reconciler = einvoice.NewReconciler(submissionRepo, txRunner, e.Tokens, authority, events, log.For("reconciler")).
		WithBatchSize(cfg.EInvoice.PollBatchSize)
	e.Orchestrator = einvoice.NewOrchestrator(
		e.Tokens, authority, myinvois.NewDocumentBuilder(), e.Reconciler,
		submissionRepo, invoiceRepo, creditNoteRepo, customerRepo, profileRepo, events, log.For("orchestrator"),
	)
	e.Settings = einvoice.NewSettingsUseCase(configRepo, v, e.Tokens, authority)

	// Firma digital (documentos v1.1) solo si hay certificado configurado.
	if cfg.EInvoice.CertPath != "" {
		cert, err := signer.LoadCertificate(cfg.EInvoice.CertPath, cfg.EInvoice.CertKeyPath, cfg.EInvoice.CertPassword)
		if err != nil {
			e.Close()
			return nil, fmt.Errorf("certificado de firma: %w", err)
		}
		e.Orchestrator.WithSigner(signer.NewDigitalSignatureService(), cert)
		log.Info().Str("cert", cfg.EInvoice.CertPath).Msg("firma digital de documentos activa")
	}
	return e, nil
}

// Close libera el pool y el publicador de eventos.
func (e *Engine) Close() {
	for _, c := range e.closers {
		_ = c()
	}
	e.Pool.Close()
}
