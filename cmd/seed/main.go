package main

import (
	"context"
	"fmt"

	"github.com/vtx-referral/internal/config"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/provider"
	"github.com/vtx-referral/internal/service"
)

type demoLead struct {
	partnerIdx  int
	clientName  string
	clientPhone string
	clientEmail string
	projectType string
	notes       string
	decision    string // approve / reject / 空表示保持 new
}

var demoPartners = []service.PartnerIssueInput{
	{Name: "Amara Okafor", Email: "amara.okafor@example.com"},
	{Name: "Jean-Luc Moreau", Email: "jeanluc.moreau@example.com"},
	{Name: "Li Wei", Email: "li.wei@example.com"},
}

var demoLeads = []demoLead{
	{0, "Grace Mensah", "+233 24 555 0101", "grace@example.com", "Residential build", "Three-bedroom villa", "approve"},
	{0, "Daniel Osei", "+233 24 555 0102", "", "Office fit-out", "", "approve"},
	{0, "Efua Boateng", "+233 24 555 0103", "efua@example.com", "Renovation", "Kitchen and baths", "approve"},
	{0, "Kwame Asante", "+233 24 555 0104", "", "Landscaping", "", ""},
	{1, "Sophie Laurent", "+33 6 12 34 56 78", "sophie@example.com", "Retail interior", "", "reject"},
	{1, "Marc Dubois", "+33 6 12 34 56 79", "", "Warehouse", "Steel frame", ""},
	{2, "Chen Jing", "+86 138 0013 8000", "chen.jing@example.com", "Residential build", "", "approve"},
}

func main() {
	cfg := config.Load()
	logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	stdLog := logger.StdLogger()
	if err := models.InitDB(cfg.Database.Driver, cfg.Database.DSN, models.DBPoolConfig{
		MaxOpenConns:           cfg.Database.Pool.MaxOpenConns,
		MaxIdleConns:           cfg.Database.Pool.MaxIdleConns,
		ConnMaxLifetimeSeconds: cfg.Database.Pool.ConnMaxLifetimeSeconds,
		ConnMaxIdleTimeSeconds: cfg.Database.Pool.ConnMaxIdleTimeSeconds,
	}); err != nil {
		stdLog.Fatalf("Failed to connect database: %v", err)
	}
	if err := models.AutoMigrate(); err != nil {
		stdLog.Fatalf("Failed to migrate database: %v", err)
	}
	if err := models.InitDefaultAdmin("", ""); err != nil {
		stdLog.Fatalf("Failed to init admin: %v", err)
	}

	var existing int64
	if err := models.DB.Model(&models.Partner{}).Count(&existing).Error; err != nil {
		stdLog.Fatalf("Failed to count partners: %v", err)
	}
	if existing > 0 {
		fmt.Printf("Partners already present (%d), skip seeding\n", existing)
		return
	}

	var admin models.Admin
	if err := models.DB.Order("id asc").First(&admin).Error; err != nil {
		stdLog.Fatalf("Failed to load admin: %v", err)
	}

	// 种子数据不发邮件也不入队
	cfg.Email.Enabled = false
	cfg.Queue.Enabled = false
	container := provider.NewContainer(cfg)
	ctx := context.Background()

	partners := make([]*models.Partner, 0, len(demoPartners))
	for idx, input := range demoPartners {
		input.CallerKey = fmt.Sprintf("seed-%d", idx)
		result, err := container.PartnerService.Issue(ctx, input)
		if err != nil && !service.IsPartialIssue(result, err) {
			stdLog.Fatalf("Failed to issue partner %s: %v", input.Email, err)
		}
		partners = append(partners, result.Partner)
		fmt.Printf("Partner %s -> %s (%s)\n", result.Partner.Name, result.Partner.Code, result.Partner.Tier)
	}

	for _, item := range demoLeads {
		lead, err := container.LeadService.Submit(ctx, service.LeadSubmitInput{
			ReferralCode: partners[item.partnerIdx].Code,
			ClientName:   item.clientName,
			ClientPhone:  item.clientPhone,
			ClientEmail:  item.clientEmail,
			ProjectType:  item.projectType,
			Notes:        item.notes,
		})
		if err != nil {
			stdLog.Fatalf("Failed to submit lead %s: %v", item.clientName, err)
		}

		var result *service.AdjudicationResult
		switch item.decision {
		case "approve":
			result, err = container.AdjudicationService.Approve(ctx, lead.ID, admin.ID)
		case "reject":
			result, err = container.AdjudicationService.Reject(ctx, lead.ID, admin.ID)
		default:
			continue
		}
		if err != nil {
			stdLog.Fatalf("Failed to adjudicate lead %d: %v", lead.ID, err)
		}
		fmt.Printf("Lead %d %s\n", lead.ID, result.Outcome)
	}

	report, err := container.LedgerService.Reconcile(ctx, false)
	if err != nil {
		stdLog.Fatalf("Failed to verify ledger: %v", err)
	}
	if len(report.Drifts) > 0 {
		stdLog.Fatalf("Seeded ledger has %d drifted partners", len(report.Drifts))
	}
	fmt.Println("Seed completed")
}
