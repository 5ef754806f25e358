package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vtx-referral/internal/constants"

	"gorm.io/gorm"
)

const defaultStoreTimeout = constants.ReferralStoreTimeoutSecond * time.Second

// withStoreTimeout 为单次存储调用附加超时
func withStoreTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// wrapStoreError 把存储层传输类错误统一成 ErrConnectionFailed
func wrapStoreError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrConnectionFailed) || errors.Is(err, gorm.ErrRecordNotFound) || isUniqueViolation(err) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrConnectionFailed, err)
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique") || strings.Contains(msg, "duplicate")
}

// isEmailConflict 唯一约束冲突发生在邮箱列上
func isEmailConflict(err error) bool {
	return isUniqueViolation(err) && strings.Contains(strings.ToLower(err.Error()), "email")
}

func storeTimeoutFromSeconds(seconds int) time.Duration {
	if seconds <= 0 {
		return defaultStoreTimeout
	}
	return time.Duration(seconds) * time.Second
}
