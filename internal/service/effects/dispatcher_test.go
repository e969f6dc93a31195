package effects

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/paddocklabs/studbook/internal/domain/models"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []models.Effect
	err  error
}

func (n *recordingNotifier) SendEvent(_ context.Context, effect models.Effect) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, effect)
	return nil
}

type recordingSink struct {
	mu       sync.Mutex
	appended []models.Effect
}

func (s *recordingSink) AppendActivity(_ context.Context, effect models.Effect) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appended = append(s.appended, effect)
	return nil
}

func TestDispatchRoutesByEffectType(t *testing.T) {
	notifier := &recordingNotifier{}
	sink := &recordingSink{}
	d := NewDispatcher(notifier, sink, nil)

	d.Dispatch([]models.Effect{
		models.NewNotification(1, "booking.status_changed", "BRD-2025-0001", nil),
		models.NewActivity(1, "semen.dispensed", "THU-2025-001", nil),
	})
	d.Wait()

	if len(notifier.sent) != 1 || notifier.sent[0].Event != "booking.status_changed" {
		t.Errorf("expected 1 notification, got %v", notifier.sent)
	}
	if len(sink.appended) != 1 || sink.appended[0].Event != "semen.dispensed" {
		t.Errorf("expected 1 audit row, got %v", sink.appended)
	}
}

func TestDispatchSwallowsDeliveryFailures(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("dispatcher down")}
	d := NewDispatcher(notifier, nil, nil)

	// Must not panic or block; failures are logged and dropped.
	d.Dispatch([]models.Effect{
		models.NewNotification(1, "booking.payment_received", "BRD-2025-0001", nil),
		models.NewActivity(1, "semen.batch_created", "THU-2025-001", nil),
	})
	d.Wait()
}

func TestDispatchNilCollaboratorsDropEffects(t *testing.T) {
	d := NewDispatcher(nil, nil, nil)
	d.Dispatch([]models.Effect{
		models.NewNotification(1, "booking.status_changed", "BRD-2025-0001", nil),
	})
	d.Wait()
}
