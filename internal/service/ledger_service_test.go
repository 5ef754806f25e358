package service

import (
	"context"
	"testing"

	"github.com/vtx-referral/internal/repository"
)

func filterAll() repository.PartnerListFilter {
	return repository.PartnerListFilter{Page: 1, PageSize: 50}
}

func TestLedgerSummaryCountsElitePartners(t *testing.T) {
	env := setupReferralServiceTest(t)
	elite := env.issuePartner(t, "Nora Blake", "nora@example.com")
	env.issuePartner(t, "Owen Hart", "owen@example.com")
	for i := 0; i < 3; i++ {
		lead := env.submitLead(t, elite.Code, "Summary Client")
		if _, err := env.adjudication.Approve(context.Background(), lead.ID, 1); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
	}

	summary, err := env.ledger.Summary(context.Background(), repository.PartnerListFilter{})
	if err != nil {
		t.Fatalf("summary failed: %v", err)
	}
	if summary.TotalPartners != 2 || summary.ElitePartners != 1 || summary.TotalReferrals != 3 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	assertMoney(t, "total earnings", summary.TotalEarnings, 3000)
	if summary.EliteTier != "Nexus" {
		t.Fatalf("expected Nexus elite tier, got %s", summary.EliteTier)
	}

	partners, total := env.ledger.List(context.Background(), filterAll())
	if total != 2 {
		t.Fatalf("expected 2 partners, got %d", total)
	}
	if !sumEarnings(partners).Equal(summary.TotalEarnings) {
		t.Fatalf("summary earnings should equal sum of partners")
	}

	filtered, total := env.ledger.List(context.Background(), repository.PartnerListFilter{Tier: "nexus"})
	if total != 1 || filtered[0].ID != elite.ID {
		t.Fatalf("expected tier filter to return elite partner, got %+v", filtered)
	}
	searched, total := env.ledger.List(context.Background(), repository.PartnerListFilter{Keyword: "OWEN@"})
	if total != 1 || searched[0].Name != "Owen Hart" {
		t.Fatalf("expected keyword search match, got %+v", searched)
	}
}

func TestReconcileRepairsDrift(t *testing.T) {
	env := setupReferralServiceTest(t)
	partner := env.issuePartner(t, "Zoe Adams", "zoe@example.com")
	for i := 0; i < 2; i++ {
		lead := env.submitLead(t, partner.Code, "Reconcile Client")
		if _, err := env.adjudication.Approve(context.Background(), lead.ID, 1); err != nil {
			t.Fatalf("approve failed: %v", err)
		}
	}
	if err := env.db.Model(partner).Updates(map[string]interface{}{"referral_count": 7, "total_earnings": "9999.00"}).Error; err != nil {
		t.Fatalf("corrupt ledger failed: %v", err)
	}

	report, err := env.ledger.Reconcile(context.Background(), false)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(report.Drifts) != 1 || report.Applied {
		t.Fatalf("expected one unapplied drift, got %+v", report)
	}
	drift := report.Drifts[0]
	if drift.StoredCount != 7 || drift.ExpectedCount != 2 {
		t.Fatalf("unexpected drift counts: %+v", drift)
	}
	assertMoney(t, "expected earnings", drift.ExpectedEarnings, 2000)
	if env.reloadPartner(t, partner.ID).ReferralCount != 7 {
		t.Fatalf("dry run must not modify partner")
	}

	report, err = env.ledger.Reconcile(context.Background(), true)
	if err != nil {
		t.Fatalf("apply reconcile failed: %v", err)
	}
	if !report.Applied {
		t.Fatalf("expected applied report")
	}
	got := env.reloadPartner(t, partner.ID)
	if got.ReferralCount != 2 {
		t.Fatalf("expected repaired count 2, got %d", got.ReferralCount)
	}
	assertMoney(t, "repaired earnings", got.TotalEarnings, 2000)
}

func TestReconcileReflectsDeletedApprovedLead(t *testing.T) {
	env := setupReferralServiceTest(t)
	partner := env.issuePartner(t, "Hugo Lane", "hugo@example.com")
	lead := env.submitLead(t, partner.Code, "Deleted Client")
	if _, err := env.adjudication.Approve(context.Background(), lead.ID, 1); err != nil {
		t.Fatalf("approve failed: %v", err)
	}
	if err := env.leads.Delete(context.Background(), lead.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	assertMoney(t, "earnings kept after delete", env.reloadPartner(t, partner.ID).TotalEarnings, 1000)

	report, err := env.ledger.Reconcile(context.Background(), true)
	if err != nil {
		t.Fatalf("reconcile failed: %v", err)
	}
	if len(report.Drifts) != 1 {
		t.Fatalf("expected drift after delete, got %+v", report.Drifts)
	}
	got := env.reloadPartner(t, partner.ID)
	if got.ReferralCount != 0 {
		t.Fatalf("expected count reset, got %d", got.ReferralCount)
	}
	assertMoney(t, "earnings after reconcile", got.TotalEarnings, 0)
}
