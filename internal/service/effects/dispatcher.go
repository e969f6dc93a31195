// Package effects processes the deferred side effects emitted by the booking
// lifecycle and the semen ledger. Delivery happens outside the primary
// transaction and failures are logged, never propagated, so the isolation of
// best-effort work from the primary operation is structural.
package effects

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/paddocklabs/studbook/internal/domain/models"
	"github.com/paddocklabs/studbook/internal/repository/sheets"
	"github.com/paddocklabs/studbook/pkg/clients/notify"
)

const deliveryTimeout = 15 * time.Second

// Dispatcher fans effects out to the notification client and the audit sink.
// Both channels are optional; a nil collaborator drops that effect type.
type Dispatcher struct {
	notifier notify.Client
	audit    sheets.AuditSink
	logger   *zap.Logger
	wg       sync.WaitGroup
}

// NewDispatcher wires an effect dispatcher.
func NewDispatcher(notifier notify.Client, audit sheets.AuditSink, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		notifier: notifier,
		audit:    audit,
		logger:   logger,
	}
}

// Dispatch delivers the effects asynchronously. It returns immediately; the
// caller's request does not wait on delivery.
func (d *Dispatcher) Dispatch(effects []models.Effect) {
	if len(effects) == 0 {
		return
	}
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()
		for _, effect := range effects {
			d.deliver(ctx, effect)
		}
	}()
}

// Wait blocks until in-flight deliveries finish. Called on shutdown.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) deliver(ctx context.Context, effect models.Effect) {
	switch effect.Type {
	case models.EffectNotify:
		if d.notifier == nil {
			return
		}
		if err := d.notifier.SendEvent(ctx, effect); err != nil {
			d.logger.Warn("notification delivery failed",
				zap.String("event", effect.Event),
				zap.String("effect_id", effect.ID),
				zap.Error(err))
		}
	case models.EffectActivity:
		if d.audit == nil {
			return
		}
		if err := d.audit.AppendActivity(ctx, effect); err != nil {
			d.logger.Warn("audit append failed",
				zap.String("event", effect.Event),
				zap.String("effect_id", effect.ID),
				zap.Error(err))
		}
	default:
		d.logger.Warn("unknown effect type", zap.String("type", string(effect.Type)))
	}
}
