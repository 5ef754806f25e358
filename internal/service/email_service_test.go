package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/models"

	"gopkg.in/gomail.v2"
)

func TestSendPartnerCodeBuildsMessage(t *testing.T) {
	svc := NewEmailService(&config.EmailConfig{
		Enabled:  true,
		Host:     "smtp.example.com",
		Port:     465,
		From:     "partners@vtx.example.com",
		FromName: "VTX Partners",
		UseSSL:   true,
	})
	var sent bytes.Buffer
	var usedCfg *config.EmailConfig
	svc.sender = func(cfg *config.EmailConfig, msg *gomail.Message) error {
		usedCfg = cfg
		_, err := msg.WriteTo(&sent)
		return err
	}

	err := svc.SendPartnerCode("john@example.com", PartnerCodeEmailInput{Name: "John Doe", Code: "VTX-JOH-1234", Tier: "Bridge"})
	if err != nil {
		t.Fatalf("send partner code failed: %v", err)
	}
	if usedCfg == nil || !usedCfg.UseSSL {
		t.Fatalf("sender should receive email config")
	}
	raw := sent.String()
	for _, want := range []string{
		"Subject: Your VTX partner code",
		"To: john@example.com",
		"VTX-JOH-1234",
		"Bridge tier",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestSendPartnerCodeGuards(t *testing.T) {
	if err := NewEmailService(nil).SendPartnerCode("a@b.com", PartnerCodeEmailInput{}); !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("expected disabled error, got %v", err)
	}
	incomplete := NewEmailService(&config.EmailConfig{Enabled: true})
	if err := incomplete.SendPartnerCode("a@b.com", PartnerCodeEmailInput{}); !errors.Is(err, ErrEmailServiceNotConfigured) {
		t.Fatalf("expected not configured error, got %v", err)
	}
	configured := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp", Port: 25, From: "x@y.com"})
	if err := configured.SendPartnerCode("broken", PartnerCodeEmailInput{}); !errors.Is(err, ErrInvalidEmail) {
		t.Fatalf("expected invalid email error, got %v", err)
	}
}

func TestQueuedNotifierSkipsWhenNoChannel(t *testing.T) {
	notifier := NewQueuedPartnerNotifier(nil, NewEmailService(&config.EmailConfig{Enabled: false}))
	partner := &models.Partner{ID: 1, Code: "VTX-ABC-1234", Email: "a@b.com"}
	if err := notifier.NotifyPartnerCode(context.Background(), partner); !errors.Is(err, ErrPartnerNotifySkipped) {
		t.Fatalf("disabled channel should report skipped, got %v", err)
	}
}

func TestQueuedNotifierSendsDirectlyWithoutQueue(t *testing.T) {
	email := NewEmailService(&config.EmailConfig{Enabled: true, Host: "smtp", Port: 25, From: "x@y.com"})
	calls := 0
	email.sender = func(*config.EmailConfig, *gomail.Message) error {
		calls++
		return errors.New("connection refused")
	}
	notifier := NewQueuedPartnerNotifier(nil, email)
	err := notifier.NotifyPartnerCode(context.Background(), &models.Partner{ID: 2, Email: "p@example.com", Code: "VTX-PPP-1000"})
	if err == nil || calls != 1 {
		t.Fatalf("expected one failing direct send, got calls=%d err=%v", calls, err)
	}
}
