package notification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
	"go.uber.org/zap"

	"service-booking-backend/internal/model"
	"service-booking-backend/internal/store"
)

// ErrNoContact is returned when the booking owner has no phone number that
// can be dialled.
var ErrNoContact = errors.New("no contactable phone number")

// NormalizePhone returns raw in E.164 form. Numbers without a country code
// are read in defaultRegion, an ISO 3166 code such as "US". With no default
// region a leading 00 international prefix is accepted in place of +.
func NormalizePhone(raw, defaultRegion string) (string, error) {
	phone := strings.TrimSpace(raw)
	if defaultRegion == "" && strings.HasPrefix(phone, "00") {
		phone = "+" + phone[2:]
	}
	num, err := phonenumbers.Parse(phone, strings.ToUpper(defaultRegion))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrNoContact, raw, err)
	}
	if !phonenumbers.IsValidNumber(num) {
		return "", fmt.Errorf("%w: %q is not a valid phone number", ErrNoContact, raw)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// CallPlacer dials a number and plays the completion message.
type CallPlacer interface {
	PlaceCall(ctx context.Context, to string) (callID string, err error)
}

// VoiceNotifier calls the booking owner when their service is complete.
type VoiceNotifier struct {
	store  store.Store
	caller CallPlacer
	region string
	log    *zap.Logger
}

// NewVoiceNotifier reads stored phone numbers without a country code in
// defaultRegion.
func NewVoiceNotifier(s store.Store, caller CallPlacer, defaultRegion string, log *zap.Logger) *VoiceNotifier {
	return &VoiceNotifier{store: s, caller: caller, region: defaultRegion, log: log}
}

// NotifyCompletion looks up the owner's phone and places the call. A missing
// or malformed number fails with ErrNoContact before anything is dialled.
func (v *VoiceNotifier) NotifyCompletion(ctx context.Context, b model.Booking) (bool, error) {
	user, err := v.store.GetUser(ctx, b.UserID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return false, fmt.Errorf("%w: user %s not found", ErrNoContact, b.UserID)
		}
		return false, err
	}
	if user.Phone == "" {
		return false, fmt.Errorf("%w: user %s has no phone", ErrNoContact, b.UserID)
	}
	to, err := NormalizePhone(user.Phone, v.region)
	if err != nil {
		return false, err
	}

	callID, err := v.caller.PlaceCall(ctx, to)
	if err != nil {
		return false, fmt.Errorf("failed to place completion call: %w", err)
	}
	v.log.Info("completion call placed",
		zap.String("booking_id", b.ID.String()),
		zap.String("call_id", callID))
	return true, nil
}

// Completion sends the push message and then places the voice call. The
// voice outcome is what gets reported.
type Completion struct {
	push  *WorkerPool
	voice *VoiceNotifier
}

// NewCompletion combines the channels. Either may be nil when not configured.
func NewCompletion(push *WorkerPool, voice *VoiceNotifier) *Completion {
	return &Completion{push: push, voice: voice}
}

func (c *Completion) NotifyCompletion(ctx context.Context, b model.Booking) (bool, error) {
	if c.push != nil {
		c.push.Dispatch(Job{BookingID: b.ID, UserID: b.UserID})
	}
	if c.voice == nil {
		return false, nil
	}
	return c.voice.NotifyCompletion(ctx, b)
}
