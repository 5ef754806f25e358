package service

import (
	"errors"
	"testing"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/constants"
)

func TestCaptchaDisabledScenePasses(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Enabled: true, Scenes: config.CaptchaSceneConfig{PartnerSignup: true}})

	if err := svc.Verify(constants.CaptchaSceneLeadSubmit, CaptchaVerifyPayload{}); err != nil {
		t.Fatalf("disabled scene should pass, got %v", err)
	}
	if err := svc.Verify(constants.CaptchaScenePartnerSignup, CaptchaVerifyPayload{}); !errors.Is(err, ErrCaptchaRequired) {
		t.Fatalf("expected captcha required, got %v", err)
	}
	setting := svc.PublicSetting()
	if !setting.Enabled || !setting.Scenes[constants.CaptchaScenePartnerSignup] || setting.Scenes[constants.CaptchaSceneLeadSubmit] {
		t.Fatalf("unexpected public setting: %+v", setting)
	}
}

func TestCaptchaImageChallengeVerify(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{Enabled: true, Scenes: config.CaptchaSceneConfig{LeadSubmit: true}})

	challenge, err := svc.GenerateImageChallenge()
	if err != nil {
		t.Fatalf("generate challenge failed: %v", err)
	}
	if challenge.CaptchaID == "" || challenge.ImageBase64 == "" {
		t.Fatalf("unexpected challenge: %+v", challenge)
	}
	err = svc.Verify(constants.CaptchaSceneLeadSubmit, CaptchaVerifyPayload{CaptchaID: challenge.CaptchaID, CaptchaCode: "!!!!"})
	if !errors.Is(err, ErrCaptchaInvalid) {
		t.Fatalf("expected invalid captcha, got %v", err)
	}
}

func TestCaptchaGenerateRequiresEnabled(t *testing.T) {
	svc := NewCaptchaService(config.CaptchaConfig{})
	if _, err := svc.GenerateImageChallenge(); !errors.Is(err, ErrCaptchaConfigInvalid) {
		t.Fatalf("expected config invalid, got %v", err)
	}
}
