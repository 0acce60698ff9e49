package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/rs/zerolog"

	"clinic-scheduler-backend/internal/model"
	"clinic-scheduler-backend/internal/store"
)

// Message is one notification sent to a patient over every channel they have.
type Message struct {
	Subject string `json:"title"`
	Body    string `json:"body"`
}

// Messenger fans a message out to e-mail, SMS and the patient's push subscriptions.
type Messenger struct {
	subs     store.NotificationStore
	email    EmailSender
	sms      SMSSender
	push     PushSender
	pushOpts *webpush.Options
	log      zerolog.Logger
}

// NewMessenger creates a Messenger. A nil push sender disables web push.
func NewMessenger(subs store.NotificationStore, email EmailSender, sms SMSSender, push PushSender, pushOpts *webpush.Options, log zerolog.Logger) *Messenger {
	return &Messenger{
		subs:     subs,
		email:    email,
		sms:      sms,
		push:     push,
		pushOpts: pushOpts,
		log:      log.With().Str("component", "messenger").Logger(),
	}
}

// Deliver sends msg to the patient. Channel failures are collected and
// returned together; a failing channel does not stop the others.
func (m *Messenger) Deliver(ctx context.Context, p *model.Patient, msg Message) error {
	var errs []error
	if p.Email != "" && m.email != nil {
		if err := m.email.SendEmail(ctx, EmailMessage{To: p.Email, ToName: p.Name, Subject: msg.Subject, Body: msg.Body}); err != nil {
			errs = append(errs, fmt.Errorf("email: %w", err))
		}
	}
	if p.Phone != "" && m.sms != nil {
		if err := m.sms.SendSMS(ctx, p.Phone, msg.Body); err != nil {
			errs = append(errs, fmt.Errorf("sms: %w", err))
		}
	}
	if m.push != nil {
		if err := m.pushAll(ctx, p.ID, msg); err != nil {
			errs = append(errs, fmt.Errorf("push: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Email sends an e-mail only.
func (m *Messenger) Email(ctx context.Context, p *model.Patient, msg Message) error {
	if p.Email == "" || m.email == nil {
		return nil
	}
	return m.email.SendEmail(ctx, EmailMessage{To: p.Email, ToName: p.Name, Subject: msg.Subject, Body: msg.Body})
}

func (m *Messenger) pushAll(ctx context.Context, patientID int64, msg Message) error {
	subs, err := m.subs.SubscriptionsForPatient(ctx, patientID)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		return nil
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	var errs []error
	for _, sub := range subs {
		if err := m.sendPush(ctx, sub, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// sendPush sends a single web push notification and drops expired subscriptions.
func (m *Messenger) sendPush(ctx context.Context, sub model.PushSubscription, payload []byte) error {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := m.push.Send(payload, wpSub, m.pushOpts)
	if err != nil {
		return fmt.Errorf("send to %s: %w", sub.Endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		m.log.Info().Str("endpoint", sub.Endpoint).Msg("subscription expired, deleting")
		if err := m.subs.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			return err
		}
	}
	return nil
}
