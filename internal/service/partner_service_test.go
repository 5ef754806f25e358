package service

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/models"

	"github.com/shopspring/decimal"
)

func TestIssueBuildsCodeFromName(t *testing.T) {
	env := setupReferralServiceTest(t)

	result, err := env.partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "john doe",
		Email:     "john@example.com",
		CallerKey: "session-1",
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	partner := result.Partner
	if !regexp.MustCompile(`^VTX-JOH-\d{4}$`).MatchString(partner.Code) {
		t.Fatalf("unexpected code format: %s", partner.Code)
	}
	if partner.Tier != "Bridge" || partner.Status != constants.PartnerStatusActive {
		t.Fatalf("expected active Bridge partner, got tier=%s status=%s", partner.Tier, partner.Status)
	}
	if partner.ReferralCount != 0 {
		t.Fatalf("expected zero referrals, got %d", partner.ReferralCount)
	}
	assertMoney(t, "initial earnings", partner.TotalEarnings, 0)
	if !result.Notified || env.notifier.callCount() != 1 {
		t.Fatalf("expected one notification, got notified=%v calls=%d", result.Notified, env.notifier.callCount())
	}

	stored, err := env.partnerRepo.GetByCode(partner.Code)
	if err != nil || stored == nil || stored.ID != partner.ID {
		t.Fatalf("stored code should match returned code, got %+v err=%v", stored, err)
	}
}

func TestIssueRejectsDuplicateEmailIgnoringCase(t *testing.T) {
	env := setupReferralServiceTest(t)
	env.issuePartner(t, "Jane Smith", "jane@example.com")

	_, err := env.partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "Jane Other",
		Email:     "  JANE@Example.COM ",
		CallerKey: "session-2",
	})
	if !errors.Is(err, ErrPartnerEmailDuplicate) {
		t.Fatalf("expected duplicate email error, got %v", err)
	}
	all, err := env.partnerRepo.ListAll()
	if err != nil {
		t.Fatalf("list partners failed: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected one partner, got %d", len(all))
	}
}

func TestIssueValidationPersistsNothing(t *testing.T) {
	env := setupReferralServiceTest(t)

	_, err := env.partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "J",
		Email:     "not-an-email",
		CallerKey: "session-3",
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	var fieldErrs FieldErrors
	if !errors.As(err, &fieldErrs) {
		t.Fatalf("expected field errors, got %T", err)
	}
	if fieldErrs["name"] == "" || fieldErrs["email"] == "" {
		t.Fatalf("expected name and email errors, got %+v", fieldErrs)
	}

	_, err = env.partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "R2-D2",
		Email:     "droid@example.com",
		CallerKey: "session-3",
	})
	if !errors.As(err, &fieldErrs) || fieldErrs["name"] == "" {
		t.Fatalf("digits in name should be rejected, got %v", err)
	}

	all, _ := env.partnerRepo.ListAll()
	if len(all) != 0 {
		t.Fatalf("expected no partners, got %d", len(all))
	}
	if env.notifier.callCount() != 0 {
		t.Fatalf("no notification expected on validation failure")
	}
}

func TestIssueNotifyFailureKeepsPartner(t *testing.T) {
	env := setupReferralServiceTest(t)
	env.notifier.err = errors.New("smtp unavailable")

	result, err := env.partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "Maria Lopez",
		Email:     "maria@example.com",
		CallerKey: "session-4",
	})
	if !errors.Is(err, ErrPartnerNotifyFailed) {
		t.Fatalf("expected notify failure, got %v", err)
	}
	if !IsPartialIssue(result, err) {
		t.Fatalf("expected partial issue result, got %+v", result)
	}
	if result.Notified {
		t.Fatalf("notified flag should be false")
	}

	env.notifier.err = nil
	partner, err := env.partners.ResendCode(context.Background(), result.Partner.ID)
	if err != nil {
		t.Fatalf("resend code failed: %v", err)
	}
	if partner.Code != result.Partner.Code {
		t.Fatalf("resend must not change code: %s vs %s", partner.Code, result.Partner.Code)
	}
	all, _ := env.partnerRepo.ListAll()
	if len(all) != 1 {
		t.Fatalf("resend must not create a partner, got %d", len(all))
	}
}

func TestIssueRejectsReentrantCaller(t *testing.T) {
	env := setupReferralServiceTest(t)

	release, ok := env.guard.Acquire(context.Background(), "issue:session-5")
	if !ok {
		t.Fatalf("acquire guard failed")
	}
	_, err := env.partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "Ann Lee",
		Email:     "ann@example.com",
		CallerKey: "session-5",
	})
	if !errors.Is(err, ErrIssueInProgress) {
		t.Fatalf("expected in-progress error, got %v", err)
	}
	release()

	if _, err := env.partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "Ann Lee",
		Email:     "ann@example.com",
		CallerKey: "session-5",
	}); err != nil {
		t.Fatalf("issue after release failed: %v", err)
	}
}

func TestLookupRequiresMatchingEmail(t *testing.T) {
	env := setupReferralServiceTest(t)
	partner := env.issuePartner(t, "Omar Haddad", "omar@example.com")

	got, err := env.partners.Lookup(context.Background(), " "+partner.Code+" ", "OMAR@example.com")
	if err != nil {
		t.Fatalf("lookup failed: %v", err)
	}
	if got.ID != partner.ID {
		t.Fatalf("expected partner %d, got %d", partner.ID, got.ID)
	}

	if _, err := env.partners.Lookup(context.Background(), partner.Code, "someone@example.com"); !errors.Is(err, ErrPartnerLookupMismatch) {
		t.Fatalf("expected mismatch, got %v", err)
	}
	if _, err := env.partners.Lookup(context.Background(), "VTX-ZZZ-0001", "omar@example.com"); !errors.Is(err, ErrPartnerLookupMismatch) {
		t.Fatalf("unknown code should be a mismatch, got %v", err)
	}
	if _, err := env.partners.Lookup(context.Background(), "bad", "omar@example.com"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdatePartnerProfile(t *testing.T) {
	env := setupReferralServiceTest(t)
	first := env.issuePartner(t, "Lena Park", "lena@example.com")
	second := env.issuePartner(t, "Victor Hugo", "victor@example.com")

	updated, err := env.partners.Update(context.Background(), first.ID, PartnerUpdateInput{
		Name:   "Lena Park-Kim",
		Tier:   "nexus",
		Status: "Inactive",
	})
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if updated.Tier != "Nexus" || updated.Status != constants.PartnerStatusInactive || updated.Name != "Lena Park-Kim" {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	if _, err := env.partners.Update(context.Background(), first.ID, PartnerUpdateInput{Email: "VICTOR@example.com"}); !errors.Is(err, ErrPartnerEmailDuplicate) {
		t.Fatalf("expected duplicate email, got %v", err)
	}
	if _, err := env.partners.Update(context.Background(), first.ID, PartnerUpdateInput{Code: second.Code}); !errors.Is(err, ErrPartnerCodeDuplicate) {
		t.Fatalf("expected duplicate code, got %v", err)
	}
	var fieldErrs FieldErrors
	if _, err := env.partners.Update(context.Background(), first.ID, PartnerUpdateInput{Tier: "Platinum"}); !errors.As(err, &fieldErrs) || fieldErrs["tier"] == "" {
		t.Fatalf("expected tier field error, got %v", err)
	}
	if _, err := env.partners.SetStatus(context.Background(), first.ID, "paused"); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected status validation error, got %v", err)
	}
	if _, err := env.partners.Update(context.Background(), 9999, PartnerUpdateInput{Name: "Nobody Here"}); !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDeletePartnerKeepsLeads(t *testing.T) {
	env := setupReferralServiceTest(t)
	partner := env.issuePartner(t, "Tom Baker", "tom@example.com")
	lead := env.submitLead(t, partner.Code, "Client One")

	if err := env.partners.Delete(context.Background(), partner.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, err := env.partners.Get(context.Background(), partner.ID); !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("expected partner gone, got %v", err)
	}
	kept := env.reloadLead(t, lead.ID)
	if kept.ReferralCode != partner.Code {
		t.Fatalf("lead should be kept with its code, got %+v", kept)
	}
	if err := env.partners.Delete(context.Background(), partner.ID); !errors.Is(err, ErrPartnerNotFound) {
		t.Fatalf("second delete should report not found, got %v", err)
	}
}

func TestStoreFailureSurfacesConnectionFailed(t *testing.T) {
	env := setupReferralServiceTest(t)
	partner := env.issuePartner(t, "Nina Ray", "nina@example.com")

	sqlDB, err := env.db.DB()
	if err != nil {
		t.Fatalf("get sql db failed: %v", err)
	}
	if err := sqlDB.Close(); err != nil {
		t.Fatalf("close db failed: %v", err)
	}

	_, err = env.partners.Get(context.Background(), partner.ID)
	if !errors.Is(err, ErrConnectionFailed) {
		t.Fatalf("expected connection failed, got %v", err)
	}
	if ErrConnectionFailed.Error() != "Connection Failed" {
		t.Fatalf("unexpected message: %s", ErrConnectionFailed.Error())
	}

	partners, total := env.ledger.List(context.Background(), filterAll())
	if len(partners) != 0 || total != 0 {
		t.Fatalf("list should degrade to empty, got %d/%d", len(partners), total)
	}
	leads, total := env.leads.List(context.Background(), leadFilterAll())
	if len(leads) != 0 || total != 0 {
		t.Fatalf("lead list should degrade to empty, got %d/%d", len(leads), total)
	}
}

func sumEarnings(partners []models.Partner) models.Money {
	total := decimal.Zero
	for _, partner := range partners {
		total = total.Add(partner.TotalEarnings.Decimal)
	}
	return models.NewMoneyFromDecimal(total)
}

func TestIssueRetriesOnCodeCollision(t *testing.T) {
	env := setupReferralServiceTest(t)
	attempts := 0
	repo := collidingCodeRepo{PartnerRepository: env.partnerRepo, collide: 1, attempts: &attempts}
	partners := NewPartnerService(repo, env.settings, env.ledger, env.notifier, NewEmailService(nil), env.guard, env.cfg)

	result, err := partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "john doe",
		Email:     "john@example.com",
		CallerKey: "session-collide",
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if attempts < 2 {
		t.Fatalf("expected a retry after the collision, got %d attempts", attempts)
	}
	stored, err := env.partnerRepo.GetByEmail("john@example.com")
	if err != nil || stored == nil {
		t.Fatalf("issued partner not stored: %v", err)
	}
	if stored.Code != result.Partner.Code || stored.ID != result.Partner.ID {
		t.Fatalf("returned code %s must be the stored code %s", result.Partner.Code, stored.Code)
	}
	holder, err := env.partnerRepo.GetByEmail("holder1@example.com")
	if err != nil || holder == nil {
		t.Fatalf("colliding partner missing: %v", err)
	}
	if holder.Code == stored.Code {
		t.Fatalf("retry should pick a fresh code, both are %s", stored.Code)
	}
}

func TestIssueGivesUpAfterRepeatedCollisions(t *testing.T) {
	env := setupReferralServiceTest(t)
	attempts := 0
	repo := collidingCodeRepo{PartnerRepository: env.partnerRepo, collide: -1, attempts: &attempts}
	partners := NewPartnerService(repo, env.settings, env.ledger, env.notifier, NewEmailService(nil), env.guard, env.cfg)

	_, err := partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "john doe",
		Email:     "john@example.com",
		CallerKey: "session-exhaust",
	})
	if !errors.Is(err, ErrPartnerCodeExhausted) {
		t.Fatalf("expected code exhausted, got %v", err)
	}
	if attempts != constants.ReferralCodeMaxRetry {
		t.Fatalf("expected %d attempts, got %d", constants.ReferralCodeMaxRetry, attempts)
	}
	if existing, _ := env.partnerRepo.GetByEmail("john@example.com"); existing != nil {
		t.Fatalf("no partner should be stored for the applicant, got %+v", existing)
	}
	if env.notifier.callCount() != 0 {
		t.Fatalf("no notification expected, got %d", env.notifier.callCount())
	}
}

func TestIssueWithoutNotifyChannelIsNotNotified(t *testing.T) {
	env := setupReferralServiceTest(t)
	notifier := NewQueuedPartnerNotifier(nil, NewEmailService(nil))
	partners := NewPartnerService(env.partnerRepo, env.settings, env.ledger, notifier, NewEmailService(nil), env.guard, env.cfg)

	result, err := partners.Issue(context.Background(), PartnerIssueInput{
		Name:      "Nadia Quinn",
		Email:     "nadia@example.com",
		CallerKey: "session-silent",
	})
	if err != nil {
		t.Fatalf("issue failed: %v", err)
	}
	if result.Notified {
		t.Fatalf("notified flag should be false when nothing was sent")
	}
	if IsPartialIssue(result, err) {
		t.Fatalf("skipped notification is not a partial issue")
	}

	partner, err := partners.ResendCode(context.Background(), result.Partner.ID)
	if !errors.Is(err, ErrEmailServiceDisabled) {
		t.Fatalf("expected email disabled on resend, got %v", err)
	}
	if partner == nil || partner.Code != result.Partner.Code {
		t.Fatalf("resend should still return the partner, got %+v", partner)
	}
}
