package service

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/mail"
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/vtx-referral/internal/constants"
)

const (
	personNameMinRune  = 2
	personNameMaxRune  = 100
	emailMaxLen        = 254
	phoneDigitsMin     = 10
	phoneDigitsMax     = 15
	projectTypeMaxRune = 100
	leadNotesMaxRune   = 2000
	codeLetterCount    = 3
)

var (
	personNamePattern = regexp.MustCompile(`^[\p{L}][\p{L} '\-]*$`)
	emailPattern      = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?(?:\.[A-Za-z0-9](?:[A-Za-z0-9\-]*[A-Za-z0-9])?)+$`)
	phonePattern      = regexp.MustCompile(`^\+?[0-9\s\-()]{10,20}$`)
)

// FieldErrors 按字段归集的校验错误
type FieldErrors map[string]string

// Error 实现 error 接口
func (e FieldErrors) Error() string {
	keys := make([]string, 0, len(e))
	for key := range e {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+": "+e[key])
	}
	return ErrValidation.Error() + ": " + strings.Join(parts, "; ")
}

// Is 使 errors.Is(err, ErrValidation) 成立
func (e FieldErrors) Is(target error) bool {
	return target == ErrValidation
}

func (e FieldErrors) add(field, message string) {
	if message == "" {
		return
	}
	if _, exists := e[field]; exists {
		return
	}
	e[field] = message
}

func (e FieldErrors) err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func validatePersonName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "name is required"
	}
	count := utf8.RuneCountInString(name)
	if count < personNameMinRune || count > personNameMaxRune {
		return fmt.Sprintf("name must be %d-%d characters", personNameMinRune, personNameMaxRune)
	}
	if !personNamePattern.MatchString(name) {
		return "name may only contain letters, spaces, hyphens and apostrophes"
	}
	return ""
}

func validateEmailAddress(email string, required bool) string {
	email = strings.TrimSpace(email)
	if email == "" {
		if required {
			return "email is required"
		}
		return ""
	}
	if len(email) > emailMaxLen || !emailPattern.MatchString(email) {
		return "email is invalid"
	}
	if addr, err := mail.ParseAddress(email); err != nil || addr.Address != email {
		return "email is invalid"
	}
	return ""
}

func validatePhone(phone string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return "phone is required"
	}
	digits := 0
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < phoneDigitsMin || digits > phoneDigitsMax || !phonePattern.MatchString(phone) {
		return fmt.Sprintf("phone must contain %d-%d digits", phoneDigitsMin, phoneDigitsMax)
	}
	return ""
}

func validateBoundedText(value, label string, maxRune int, required bool) string {
	value = strings.TrimSpace(value)
	if value == "" {
		if required {
			return label + " is required"
		}
		return ""
	}
	if utf8.RuneCountInString(value) > maxRune {
		return fmt.Sprintf("%s must be at most %d characters", label, maxRune)
	}
	return ""
}

// referralCodeFormat 推荐码格式 PREFIX-XXX-####
type referralCodeFormat struct {
	prefix  string
	pattern *regexp.Regexp
}

func newReferralCodeFormat(prefix string) referralCodeFormat {
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	if prefix == "" {
		prefix = constants.ReferralCodePrefix
	}
	return referralCodeFormat{
		prefix:  prefix,
		pattern: regexp.MustCompile(`^` + regexp.QuoteMeta(prefix) + `-[A-Z]{3}-\d{4}$`),
	}
}

// Normalize 去空白并转大写
func (f referralCodeFormat) Normalize(raw string) string {
	return strings.ToUpper(strings.TrimSpace(raw))
}

// Valid 仅校验格式，不校验是否存在
func (f referralCodeFormat) Valid(code string) bool {
	return f.pattern.MatchString(code)
}

// Generate 根据姓名生成候选推荐码，唯一性由存储层裁定
func (f referralCodeFormat) Generate(name string) (string, error) {
	suffix, err := randomCodeSuffix()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s-%s-%d", f.prefix, codeLetters(name), suffix), nil
}

// codeLetters 取姓名去空格后的前三个字母，非 A-Z 字符跳过，不足补 X
func codeLetters(name string) string {
	var builder strings.Builder
	builder.Grow(codeLetterCount)
	for _, r := range strings.ToUpper(strings.Join(strings.Fields(name), "")) {
		if builder.Len() == codeLetterCount {
			break
		}
		if r <= unicode.MaxASCII && unicode.IsLetter(r) {
			builder.WriteRune(r)
		}
	}
	for builder.Len() < codeLetterCount {
		builder.WriteByte('X')
	}
	return builder.String()
}

func randomCodeSuffix() (int64, error) {
	span := big.NewInt(constants.ReferralCodeSuffixMax - constants.ReferralCodeSuffixMin + 1)
	n, err := rand.Int(rand.Reader, span)
	if err != nil {
		return 0, err
	}
	return n.Int64() + constants.ReferralCodeSuffixMin, nil
}

func normalizePartnerStatus(raw string) (string, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case constants.PartnerStatusActive:
		return constants.PartnerStatusActive, true
	case constants.PartnerStatusInactive:
		return constants.PartnerStatusInactive, true
	default:
		return "", false
	}
}
