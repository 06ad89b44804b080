package einvoice

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron"

	"github.com/jhoicas/buku-api/pkg/logger"
)

// DefaultPollSchedule intervalo del barrido periódico.
const DefaultPollSchedule = "@every 30m"

// PendingPoller ejecuta un barrido de envíos pendientes.
type PendingPoller interface {
	PollPending(ctx context.Context) (PollSummary, error)
}

// PollScheduler dispara PollPending de forma periódica en un único proceso.
// Si un barrido sigue en curso, el siguiente tick se omite.
type PollScheduler struct {
	poller  PendingPoller
	log     *logger.Logger
	cron    *cron.Cron
	timeout time.Duration
	running sync.Mutex
}

// NewPollScheduler construye el scheduler. timeout acota cada barrido (0 = sin límite).
func NewPollScheduler(poller PendingPoller, log *logger.Logger, timeout time.Duration) *PollScheduler {
	return &PollScheduler{
		poller:  poller,
		log:     log,
		cron:    cron.New(),
		timeout: timeout,
	}
}

// Start registra el job con la expresión dada (vacía = DefaultPollSchedule) y arranca el cron.
func (s *PollScheduler) Start(spec string) error {
	if spec == "" {
		spec = DefaultPollSchedule
	}
	if err := s.cron.AddFunc(spec, func() { s.RunOnce(context.Background()) }); err != nil {
		return fmt.Errorf("programar poll de MyInvois %q: %w", spec, err)
	}
	s.cron.Start()
	s.log.Info().Str("schedule", spec).Msg("poll periódico de MyInvois activo")
	return nil
}

// Stop detiene el cron; un barrido en curso termina por su cuenta.
func (s *PollScheduler) Stop() {
	s.cron.Stop()
}

// RunOnce ejecuta un barrido salvo que ya haya otro en curso (ran=false).
func (s *PollScheduler) RunOnce(ctx context.Context) (summary PollSummary, ran bool) {
	if !s.running.TryLock() {
		s.log.Warn().Msg("barrido MyInvois anterior aún en curso; se omite este tick")
		return PollSummary{}, false
	}
	defer s.running.Unlock()

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	summary, err := s.poller.PollPending(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("barrido MyInvois falló")
	}
	return summary, true
}
