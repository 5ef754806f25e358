package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vtx-referral/internal/models"
	"github.com/vtx-referral/internal/repository"
)

// SettingService 设置业务服务
type SettingService struct {
	repo         repository.SettingRepository
	storeTimeout time.Duration
}

// NewSettingService 创建设置服务
func NewSettingService(repo repository.SettingRepository) *SettingService {
	return &SettingService{repo: repo, storeTimeout: defaultStoreTimeout}
}

// SetStoreTimeout 设置存储调用超时
func (s *SettingService) SetStoreTimeout(timeout time.Duration) {
	if s == nil || timeout <= 0 {
		return
	}
	s.storeTimeout = timeout
}

// GetByKey 获取设置，不存在时返回 nil
func (s *SettingService) GetByKey(ctx context.Context, key string) (models.JSON, error) {
	if s == nil || s.repo == nil {
		return nil, nil
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	setting, err := s.repo.WithContext(storeCtx).GetByKey(key)
	if err != nil {
		return nil, wrapStoreError(err)
	}
	if setting == nil {
		return nil, nil
	}
	return setting.ValueJSON, nil
}

// Update 整体写入设置值
func (s *SettingService) Update(ctx context.Context, key string, value map[string]interface{}) (models.JSON, error) {
	if s == nil || s.repo == nil {
		return nil, ErrNotFound
	}
	storeCtx, cancel := withStoreTimeout(ctx, s.storeTimeout)
	defer cancel()

	setting, err := s.repo.WithContext(storeCtx).Upsert(key, models.JSON(value))
	if err != nil {
		return nil, wrapStoreError(err)
	}
	return setting.ValueJSON, nil
}

func parseSettingInt64(value interface{}) (int64, error) {
	switch v := value.(type) {
	case int:
		return int64(v), nil
	case int64:
		return v, nil
	case float64:
		if v != float64(int64(v)) {
			return 0, fmt.Errorf("not an integer")
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, fmt.Errorf("empty string")
		}
		return strconv.ParseInt(trimmed, 10, 64)
	default:
		return 0, fmt.Errorf("unsupported value type")
	}
}

func normalizeSettingText(raw interface{}) string {
	text, ok := raw.(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(text)
}

func normalizeSettingTextWithRuneLimit(raw interface{}, maxRuneCount int) string {
	text := normalizeSettingText(raw)
	if text == "" || maxRuneCount <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRuneCount {
		return text
	}
	return string(runes[:maxRuneCount])
}
