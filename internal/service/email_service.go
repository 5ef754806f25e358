package service

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/vtx-referral/internal/config"

	"gopkg.in/gomail.v2"
)

// EmailService 邮件发送服务
type EmailService struct {
	cfg    *config.EmailConfig
	sender func(cfg *config.EmailConfig, msg *gomail.Message) error
}

// NewEmailService 创建邮件服务
func NewEmailService(cfg *config.EmailConfig) *EmailService {
	return &EmailService{cfg: cfg, sender: dialAndSend}
}

// Enabled 邮件通道是否可用
func (s *EmailService) Enabled() bool {
	return s != nil && s.cfg != nil && s.cfg.Enabled
}

// PartnerCodeEmailInput 推荐码邮件内容
type PartnerCodeEmailInput struct {
	Name string
	Code string
	Tier string
}

// SendPartnerCode 向新合作伙伴发送推荐码
func (s *EmailService) SendPartnerCode(toEmail string, input PartnerCodeEmailInput) error {
	subject, body := buildPartnerCodeContent(input)
	return s.sendTextEmail(toEmail, subject, body)
}

func (s *EmailService) sendTextEmail(toEmail, subject, body string) error {
	if !s.Enabled() {
		return ErrEmailServiceDisabled
	}
	if s.cfg.Host == "" || s.cfg.Port == 0 || s.cfg.From == "" {
		return ErrEmailServiceNotConfigured
	}
	if _, err := mail.ParseAddress(toEmail); err != nil {
		return ErrInvalidEmail
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", s.cfg.From, strings.TrimSpace(s.cfg.FromName))
	msg.SetHeader("To", toEmail)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	send := s.sender
	if send == nil {
		send = dialAndSend
	}
	if err := send(s.cfg, msg); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

func dialAndSend(cfg *config.EmailConfig, msg *gomail.Message) error {
	dialer := gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.SSL = cfg.UseSSL
	return dialer.DialAndSend(msg)
}

func buildPartnerCodeContent(input PartnerCodeEmailInput) (string, string) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = "partner"
	}
	subject := "Your VTX partner code"
	var body strings.Builder
	fmt.Fprintf(&body, "Hi %s,\n\n", name)
	fmt.Fprintf(&body, "Welcome to the VTX Referral Partner Program. Your referral code is:\n\n    %s\n\n", input.Code)
	if tier := strings.TrimSpace(input.Tier); tier != "" {
		fmt.Fprintf(&body, "You are starting on the %s tier.\n", tier)
	}
	body.WriteString("Share this code with clients and include it on every lead you submit.\n")
	return subject, body.String()
}
