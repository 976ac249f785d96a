package delivery

import (
	"context"
	"testing"
	"time"

	"github.com/abekov/accountd/internal/domain"
)

type fakeDeliveryRepo struct {
	enqueue func(ctx context.Context, d *domain.Delivery) (*domain.Delivery, error)
}

func (f *fakeDeliveryRepo) Enqueue(ctx context.Context, d *domain.Delivery) (*domain.Delivery, error) {
	return f.enqueue(ctx, d)
}

func (f *fakeDeliveryRepo) Claim(context.Context, string, int) ([]*domain.Delivery, error) {
	return nil, nil
}
func (f *fakeDeliveryRepo) MarkSent(context.Context, string) error                 { return nil }
func (f *fakeDeliveryRepo) Reschedule(context.Context, string, string, time.Time) error {
	return nil
}
func (f *fakeDeliveryRepo) Fail(context.Context, string, string) error { return nil }
func (f *fakeDeliveryRepo) RescheduleStale(context.Context, time.Time, int) (int, error) {
	return 0, nil
}
func (f *fakeDeliveryRepo) FailStale(context.Context, time.Time, int) (int, error) { return 0, nil }

func TestDispatch_Email_EnqueuesPendingRow(t *testing.T) {
	var got *domain.Delivery
	repo := &fakeDeliveryRepo{
		enqueue: func(_ context.Context, d *domain.Delivery) (*domain.Delivery, error) {
			got = d
			return d, nil
		},
	}

	d := NewQueueDispatcher(repo, 6)
	user := &domain.User{ID: "user-1", Email: "a@example.com"}
	err := d.Dispatch(context.Background(), domain.ChannelEmail, user, domain.TemplateAccountVerification,
		map[string]string{"token": "raw-token"})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if got == nil {
		t.Fatal("nothing enqueued")
	}
	if got.Recipient != "a@example.com" {
		t.Errorf("recipient = %q, want user email", got.Recipient)
	}
	if got.Status != domain.DeliveryPending {
		t.Errorf("status = %q, want pending", got.Status)
	}
	if got.MaxAttempts != 6 {
		t.Errorf("max attempts = %d, want 6", got.MaxAttempts)
	}
	if got.Params["token"] != "raw-token" {
		t.Error("params must carry the plaintext token to the worker")
	}
}

func TestDispatch_SMS_UsesMobileNumber(t *testing.T) {
	var got *domain.Delivery
	repo := &fakeDeliveryRepo{
		enqueue: func(_ context.Context, d *domain.Delivery) (*domain.Delivery, error) {
			got = d
			return d, nil
		},
	}

	mobile := "+15551234567"
	user := &domain.User{ID: "user-1", Email: "a@example.com", MobileNumber: &mobile}

	d := NewQueueDispatcher(repo, 3)
	if err := d.Dispatch(context.Background(), domain.ChannelSMS, user, domain.TemplateOTP,
		map[string]string{"code": "123456"}); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}

	if got.Recipient != mobile {
		t.Errorf("recipient = %q, want %q", got.Recipient, mobile)
	}
	if got.Channel != domain.ChannelSMS {
		t.Errorf("channel = %q, want sms", got.Channel)
	}
}

func TestDispatch_SMSWithoutMobile_Errors(t *testing.T) {
	enqueued := false
	repo := &fakeDeliveryRepo{
		enqueue: func(_ context.Context, d *domain.Delivery) (*domain.Delivery, error) {
			enqueued = true
			return d, nil
		},
	}

	d := NewQueueDispatcher(repo, 3)
	user := &domain.User{ID: "user-1", Email: "a@example.com"}
	if err := d.Dispatch(context.Background(), domain.ChannelSMS, user, domain.TemplateOTP, nil); err == nil {
		t.Fatal("expected error for sms dispatch without mobile number")
	}
	if enqueued {
		t.Error("must not enqueue when the channel has no recipient")
	}
}

func TestNewQueueDispatcher_ZeroMaxAttempts_FallsBack(t *testing.T) {
	var got *domain.Delivery
	repo := &fakeDeliveryRepo{
		enqueue: func(_ context.Context, d *domain.Delivery) (*domain.Delivery, error) {
			got = d
			return d, nil
		},
	}

	d := NewQueueDispatcher(repo, 0)
	user := &domain.User{ID: "user-1", Email: "a@example.com"}
	if err := d.Dispatch(context.Background(), domain.ChannelEmail, user, domain.TemplateWelcome, nil); err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if got.MaxAttempts != 6 {
		t.Errorf("max attempts = %d, want default 6", got.MaxAttempts)
	}
}
