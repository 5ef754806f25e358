package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vtx-referral/internal/constants"
	"github.com/vtx-referral/internal/models"

	"github.com/shopspring/decimal"
)

const (
	tierMaxCount           = 20
	tierNameMaxRune        = 50
	tierDescriptionMaxRune = 300
	tierColorMaxRune       = 32
	tierCommissionMaxLen   = 12
)

// Tier 合作伙伴等级
type Tier struct {
	Name        string `json:"name"`
	Commission  string `json:"commission"` // 非负整数字符串，每条批准线索的固定佣金
	Description string `json:"description"`
	Color       string `json:"color"`
}

// TierSetting 等级配置，整体读写
type TierSetting struct {
	Tiers       []Tier `json:"tiers"`
	UpgradeTier string `json:"upgrade_tier"` // 自动晋升的目标等级，空表示不晋升
}

// TierDefaultSetting 未配置时使用的默认等级
func TierDefaultSetting() TierSetting {
	return NormalizeTierSetting(TierSetting{
		Tiers: []Tier{
			{Name: "Bridge", Commission: "1000", Description: "Entry tier for new partners", Color: "#3B82F6"},
			{Name: "Nexus", Commission: "1500", Description: "Elite tier unlocked after three approved referrals", Color: "#8B5CF6"},
		},
		UpgradeTier: constants.DefaultUpgradeTierName,
	})
}

// NormalizeTierSetting 归一化等级配置并解析晋升目标
func NormalizeTierSetting(setting TierSetting) TierSetting {
	tiers := make([]Tier, 0, len(setting.Tiers))
	for _, tier := range setting.Tiers {
		tiers = append(tiers, Tier{
			Name:        normalizeSettingText(tier.Name),
			Commission:  strings.TrimSpace(tier.Commission),
			Description: normalizeSettingTextWithRuneLimit(tier.Description, tierDescriptionMaxRune),
			Color:       normalizeSettingTextWithRuneLimit(tier.Color, tierColorMaxRune),
		})
	}
	result := TierSetting{Tiers: tiers}
	result.UpgradeTier = resolveUpgradeTier(tiers, strings.TrimSpace(setting.UpgradeTier))
	return result
}

// resolveUpgradeTier 显式指定优先，其次按名称匹配 Nexus，再其次取第二个等级
func resolveUpgradeTier(tiers []Tier, explicit string) string {
	if explicit != "" {
		for _, tier := range tiers {
			if strings.EqualFold(tier.Name, explicit) {
				return tier.Name
			}
		}
		return explicit
	}
	for _, tier := range tiers {
		if strings.EqualFold(tier.Name, constants.DefaultUpgradeTierName) {
			return tier.Name
		}
	}
	if len(tiers) > 1 {
		return tiers[1].Name
	}
	return ""
}

// ValidateTierSetting 校验等级配置
func ValidateTierSetting(setting TierSetting) error {
	normalized := NormalizeTierSetting(setting)
	if len(normalized.Tiers) == 0 {
		return fmt.Errorf("%w: at least one tier is required", ErrTierConfigInvalid)
	}
	if len(normalized.Tiers) > tierMaxCount {
		return fmt.Errorf("%w: at most %d tiers are allowed", ErrTierConfigInvalid, tierMaxCount)
	}
	seen := make(map[string]struct{}, len(normalized.Tiers))
	for idx, tier := range normalized.Tiers {
		if tier.Name == "" {
			return fmt.Errorf("%w: tier #%d has an empty name", ErrTierConfigInvalid, idx+1)
		}
		if utf8.RuneCountInString(tier.Name) > tierNameMaxRune {
			return fmt.Errorf("%w: tier name %q is too long", ErrTierConfigInvalid, tier.Name)
		}
		key := strings.ToLower(tier.Name)
		if _, ok := seen[key]; ok {
			return fmt.Errorf("%w: duplicate tier name %q", ErrTierConfigInvalid, tier.Name)
		}
		seen[key] = struct{}{}
		if _, err := parseCommission(tier.Commission); err != nil {
			return fmt.Errorf("%w: tier %q commission must be a non-negative integer", ErrTierConfigInvalid, tier.Name)
		}
	}
	if normalized.UpgradeTier != "" {
		if _, ok := normalized.Find(normalized.UpgradeTier); !ok {
			return fmt.Errorf("%w: upgrade tier %q is not in the list", ErrTierConfigInvalid, normalized.UpgradeTier)
		}
	}
	return nil
}

// TierSettingToMap 转换为 settings 存储结构
func TierSettingToMap(setting TierSetting) map[string]interface{} {
	normalized := NormalizeTierSetting(setting)
	tiers := make([]interface{}, 0, len(normalized.Tiers))
	for _, tier := range normalized.Tiers {
		tiers = append(tiers, map[string]interface{}{
			"name":        tier.Name,
			"commission":  tier.Commission,
			"description": tier.Description,
			"color":       tier.Color,
		})
	}
	return map[string]interface{}{
		"tiers":        tiers,
		"upgrade_tier": normalized.UpgradeTier,
	}
}

func tierSettingFromJSON(raw models.JSON, fallback TierSetting) TierSetting {
	list, ok := raw["tiers"].([]interface{})
	if !ok || len(list) == 0 {
		return fallback
	}
	tiers := make([]Tier, 0, len(list))
	for _, item := range list {
		entry, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		tier := Tier{
			Name:        normalizeSettingText(entry["name"]),
			Description: normalizeSettingText(entry["description"]),
			Color:       normalizeSettingText(entry["color"]),
		}
		if amount, err := parseSettingInt64(entry["commission"]); err == nil {
			tier.Commission = strconv.FormatInt(amount, 10)
		} else {
			tier.Commission = normalizeSettingText(entry["commission"])
		}
		tiers = append(tiers, tier)
	}
	if len(tiers) == 0 {
		return fallback
	}
	return NormalizeTierSetting(TierSetting{
		Tiers:       tiers,
		UpgradeTier: normalizeSettingText(raw["upgrade_tier"]),
	})
}

// FirstTier 返回新合作伙伴的初始等级
func (s TierSetting) FirstTier() (Tier, bool) {
	if len(s.Tiers) == 0 {
		return Tier{}, false
	}
	return s.Tiers[0], true
}

// Find 按名称查找等级（不区分大小写）
func (s TierSetting) Find(name string) (Tier, bool) {
	name = strings.TrimSpace(name)
	for _, tier := range s.Tiers {
		if strings.EqualFold(tier.Name, name) {
			return tier, true
		}
	}
	return Tier{}, false
}

// CommissionFor 返回指定等级的佣金与实际计佣等级，未知等级回退到第一个等级
func (s TierSetting) CommissionFor(name string) (decimal.Decimal, string) {
	tier, ok := s.Find(name)
	if !ok {
		tier, ok = s.FirstTier()
		if !ok {
			return decimal.Zero, ""
		}
	}
	amount, err := parseCommission(tier.Commission)
	if err != nil {
		return decimal.Zero, tier.Name
	}
	return amount, tier.Name
}

// PromotionEnabled 是否配置了晋升目标
func (s TierSetting) PromotionEnabled() bool {
	return strings.TrimSpace(s.UpgradeTier) != ""
}

func parseCommission(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > tierCommissionMaxLen {
		return decimal.Zero, fmt.Errorf("invalid commission")
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return decimal.Zero, fmt.Errorf("invalid commission")
		}
	}
	amount, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromInt(amount), nil
}

// GetTierSetting 获取等级配置，未配置时回退默认
func (s *SettingService) GetTierSetting(ctx context.Context) (TierSetting, error) {
	fallback := TierDefaultSetting()
	if s == nil {
		return fallback, nil
	}
	value, err := s.GetByKey(ctx, constants.SettingKeyReferralTiers)
	if err != nil {
		return fallback, err
	}
	if value == nil {
		return fallback, nil
	}
	return tierSettingFromJSON(value, fallback), nil
}

// UpdateTierSetting 整体替换等级配置
func (s *SettingService) UpdateTierSetting(ctx context.Context, setting TierSetting) (TierSetting, error) {
	normalized := NormalizeTierSetting(setting)
	if err := ValidateTierSetting(normalized); err != nil {
		return TierSetting{}, err
	}
	if _, err := s.Update(ctx, constants.SettingKeyReferralTiers, TierSettingToMap(normalized)); err != nil {
		return TierSetting{}, err
	}
	return normalized, nil
}
