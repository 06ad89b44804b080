package einvoice_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/buku-api/internal/application/einvoice"
	"github.com/jhoicas/buku-api/pkg/logger"
)

// blockingPoller queda detenido en PollPending hasta que se cierre release.
type blockingPoller struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	once    sync.Once
}

func (p *blockingPoller) PollPending(ctx context.Context) (einvoice.PollSummary, error) {
	p.calls.Add(1)
	p.once.Do(func() { close(p.started) })
	select {
	case <-p.release:
	case <-ctx.Done():
		return einvoice.PollSummary{}, ctx.Err()
	}
	return einvoice.PollSummary{Scanned: 1, Succeeded: 1}, nil
}

func TestPollScheduler_OmiteTickSiHayBarridoEnCurso(t *testing.T) {
	p := &blockingPoller{started: make(chan struct{}), release: make(chan struct{})}
	s := einvoice.NewPollScheduler(p, logger.Nop(), 0)

	done := make(chan einvoice.PollSummary)
	go func() {
		summary, _ := s.RunOnce(context.Background())
		done <- summary
	}()
	<-p.started

	_, ran := s.RunOnce(context.Background())
	assert.False(t, ran)

	close(p.release)
	summary := <-done
	assert.Equal(t, 1, summary.Scanned)
	assert.EqualValues(t, 1, p.calls.Load())

	summary, ran = s.RunOnce(context.Background())
	assert.True(t, ran)
	assert.Equal(t, 1, summary.Succeeded)
}

func TestPollScheduler_TimeoutAcotaElBarrido(t *testing.T) {
	p := &blockingPoller{started: make(chan struct{}), release: make(chan struct{})}
	s := einvoice.NewPollScheduler(p, logger.Nop(), 20*time.Millisecond)

	summary, ran := s.RunOnce(context.Background())
	assert.True(t, ran)
	assert.Zero(t, summary.Scanned)
}

func TestPollScheduler_ExpresionInvalida(t *testing.T) {
	p := &blockingPoller{started: make(chan struct{}), release: make(chan struct{})}
	s := einvoice.NewPollScheduler(p, logger.Nop(), 0)

	err := s.Start("cada rato")
	require.Error(t, err)
}

func TestPollScheduler_BarridoRealSobreElReconciliador(t *testing.T) {
	h := newHarness(t)
	s := einvoice.NewPollScheduler(h.reconciler, logger.Nop(), time.Second)

	summary, ran := s.RunOnce(context.Background())
	assert.True(t, ran)
	assert.Equal(t, einvoice.PollSummary{}, summary)
}
