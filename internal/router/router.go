package router

import (
	"fmt"
	"sort"
	"strings"

	"github.com/vtx-referral/internal/authz"
	"github.com/vtx-referral/internal/cache"
	"github.com/vtx-referral/internal/config"
	adminhandlers "github.com/vtx-referral/internal/http/handlers/admin"
	publichandlers "github.com/vtx-referral/internal/http/handlers/public"
	"github.com/vtx-referral/internal/http/response"
	"github.com/vtx-referral/internal/logger"
	"github.com/vtx-referral/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "vtx"
	}
	redisClient := cache.Client()
	adminLoginRule := RuleFromConfig(fmt.Sprintf("%s:rate:admin_login", redisPrefix), cfg.Security.LoginRateLimit)
	adminLoginRule.MessageKey = "error.rate_limited"
	issueRule := RuleFromConfig(fmt.Sprintf("%s:rate:partner_issue", redisPrefix), cfg.Security.IssueRateLimit)
	intakeRule := RuleFromConfig(fmt.Sprintf("%s:rate:lead_intake", redisPrefix), cfg.Security.IntakeRateLimit)

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log, "/health"))
	r.Use(CORSMiddleware(cfg.CORS))

	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.GET("/config", publicHandler.GetPublicConfig)
			public.GET("/tiers", publicHandler.GetTiers)
			public.GET("/captcha/image", publicHandler.GetImageCaptcha)
			public.POST("/partners", RateLimitMiddleware(redisClient, issueRule, KeyByIP), publicHandler.IssuePartner)
			public.POST("/partners/lookup", RateLimitMiddleware(redisClient, intakeRule, KeyByIP), publicHandler.LookupPartner)
			public.POST("/leads", RateLimitMiddleware(redisClient, intakeRule, KeyByIP), publicHandler.SubmitLead)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIPAndJSONField("username")), adminHandler.AdminLogin)

			// 登录即可访问
			authed := admin.Group("", JWTAuthMiddleware(c.AuthService))
			authed.PUT("/password", adminHandler.UpdateAdminPassword)
			authed.GET("/authz/me", adminHandler.GetAuthzMe)

			// 角色分配仅限超级管理员
			super := authed.Group("/authz", SuperAdminMiddleware())
			super.PUT("/admins/:id/roles", adminHandler.SetAuthzAdminRoles)

			authorized := authed.Group("", AdminRBACMiddleware(c.AuthzService))
			{
				authorized.GET("/authz/roles", adminHandler.ListAuthzRoles)
				authorized.GET("/authz/audit-logs", adminHandler.ListAuthzAuditLogs)
				authorized.GET("/authz/permissions", func(ctx *gin.Context) {
					response.Success(ctx, buildAdminPermissionCatalog(r))
				})

				// 合作伙伴与账本
				authorized.GET("/partners", adminHandler.ListPartners)
				authorized.GET("/partners/summary", adminHandler.GetPartnerSummary)
				authorized.POST("/partners/reconcile", adminHandler.ReconcilePartners)
				authorized.GET("/partners/:id", adminHandler.GetPartner)
				authorized.PUT("/partners/:id", adminHandler.UpdatePartner)
				authorized.DELETE("/partners/:id", adminHandler.DeletePartner)
				authorized.PATCH("/partners/:id/status", adminHandler.UpdatePartnerStatus)
				authorized.POST("/partners/:id/notify", adminHandler.ResendPartnerCode)

				// 线索审核
				authorized.GET("/leads", adminHandler.ListLeads)
				authorized.GET("/leads/:id", adminHandler.GetLead)
				authorized.DELETE("/leads/:id", adminHandler.DeleteLead)
				authorized.POST("/leads/:id/approve", adminHandler.ApproveLead)
				authorized.POST("/leads/:id/reject", adminHandler.RejectLead)

				// 等级配置
				authorized.GET("/tiers", adminHandler.GetTiers)
				authorized.PUT("/tiers", adminHandler.UpdateTiers)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return r
}

type adminPermissionCatalogItem struct {
	Module     string `json:"module"`
	Method     string `json:"method"`
	Object     string `json:"object"`
	Permission string `json:"permission"`
}

func buildAdminPermissionCatalog(engine *gin.Engine) []adminPermissionCatalogItem {
	if engine == nil {
		return []adminPermissionCatalogItem{}
	}

	routes := engine.Routes()
	seen := make(map[string]struct{}, len(routes))
	items := make([]adminPermissionCatalogItem, 0, len(routes))

	for _, item := range routes {
		method := strings.ToUpper(strings.TrimSpace(item.Method))
		if method == "" || method == "OPTIONS" || method == "HEAD" {
			continue
		}
		if !strings.HasPrefix(item.Path, "/api/v1/admin/") {
			continue
		}
		if item.Path == "/api/v1/admin/login" {
			continue
		}
		object := authz.NormalizeObject(item.Path)
		permission := method + ":" + object
		if _, exists := seen[permission]; exists {
			continue
		}
		seen[permission] = struct{}{}
		items = append(items, adminPermissionCatalogItem{
			Module:     deriveAdminPermissionModule(object),
			Method:     method,
			Object:     object,
			Permission: permission,
		})
	}

	sort.Slice(items, func(i, j int) bool {
		if items[i].Module == items[j].Module {
			if items[i].Object == items[j].Object {
				return items[i].Method < items[j].Method
			}
			return items[i].Object < items[j].Object
		}
		return items[i].Module < items[j].Module
	})

	return items
}

func deriveAdminPermissionModule(object string) string {
	normalized := strings.TrimPrefix(strings.TrimSpace(object), "/")
	if normalized == "" {
		return "system"
	}
	segments := strings.Split(normalized, "/")
	if len(segments) <= 1 {
		return segments[0]
	}
	if segments[0] != "admin" {
		return segments[0]
	}
	if segments[1] == "authz" {
		return "authz"
	}
	return segments[1]
}
