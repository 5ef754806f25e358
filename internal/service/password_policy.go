package service

import (
	"unicode"

	"github.com/vtx-referral/internal/config"
)

// bcrypt 只接受 72 字节以内的口令
const passwordMaxBytes = 72

// passwordPolicyError 携带消息键与参数，由 HTTP 层渲染
type passwordPolicyError struct {
	key  string
	args []interface{}
}

func (e passwordPolicyError) Error() string { return e.key }
func (e passwordPolicyError) Is(target error) bool { return target == ErrWeakPassword }
func (e passwordPolicyError) Key() string { return e.key }
func (e passwordPolicyError) Args() []interface{} { return e.args }

type passwordTraits struct {
	runes int
	upper bool
	lower bool
	digit bool
}

func inspectPassword(password string) passwordTraits {
	var traits passwordTraits
	for _, r := range password {
		traits.runes++
		switch {
		case unicode.IsUpper(r):
			traits.upper = true
		case unicode.IsLower(r):
			traits.lower = true
		case unicode.IsDigit(r):
			traits.digit = true
		}
	}
	return traits
}

func validatePassword(policy config.PasswordPolicy, password string) error {
	if len(password) > passwordMaxBytes {
		return passwordPolicyError{key: "error.password_max_length", args: []interface{}{passwordMaxBytes}}
	}
	traits := inspectPassword(password)
	switch {
	case policy.MinLength > 0 && traits.runes < policy.MinLength:
		return passwordPolicyError{key: "error.password_min_length", args: []interface{}{policy.MinLength}}
	case policy.RequireUpper && !traits.upper:
		return passwordPolicyError{key: "error.password_require_upper"}
	case policy.RequireLower && !traits.lower:
		return passwordPolicyError{key: "error.password_require_lower"}
	case policy.RequireNumber && !traits.digit:
		return passwordPolicyError{key: "error.password_require_number"}
	}
	return nil
}
