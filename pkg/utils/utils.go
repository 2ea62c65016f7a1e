package utils

import (
	"crypto/md5"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// UUID returns a new uuid string.
func UUID() string {
	return uuid.NewString()
}

// UUIDWithoutDash returns a new uuid string without dashes.
func UUIDWithoutDash() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// MD5 returns the hex md5 digest of s.
func MD5(s string) string {
	sum := md5.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}

const randomChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomString returns a random string of length n.
func RandomString(n int) string {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(randomChars))))
		if err != nil {
			b[i] = randomChars[0]
			continue
		}
		b[i] = randomChars[idx.Int64()]
	}
	return string(b)
}

// RandomNumber returns a random numeric string of length n.
func RandomNumber(n int) string {
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, big.NewInt(10))
		if err != nil {
			b[i] = '0'
			continue
		}
		b[i] = byte('0' + idx.Int64())
	}
	return string(b)
}

// Contains reports whether slice contains item.
func Contains[T comparable](slice []T, item T) bool {
	for _, v := range slice {
		if v == item {
			return true
		}
	}
	return false
}

// Unique removes duplicates while preserving order.
func Unique[T comparable](slice []T) []T {
	seen := make(map[T]struct{}, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}

// Filter keeps the elements for which fn returns true.
func Filter[T any](slice []T, fn func(T) bool) []T {
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if fn(v) {
			result = append(result, v)
		}
	}
	return result
}

// Map transforms every element with fn.
func Map[T, U any](slice []T, fn func(T) U) []U {
	result := make([]U, len(slice))
	for i, v := range slice {
		result[i] = fn(v)
	}
	return result
}

// CamelToSnake converts CamelCase to snake_case.
func CamelToSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		} else {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// SnakeToCamel converts snake_case to CamelCase.
func SnakeToCamel(s string) string {
	parts := strings.Split(s, "_")
	var b strings.Builder
	for _, p := range parts {
		if p == "" {
			continue
		}
		b.WriteString(strings.ToUpper(p[:1]))
		b.WriteString(p[1:])
	}
	return b.String()
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a url slug, e.g. "Barangay Notice #3"
// becomes "barangay-notice-3".
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = slugPattern.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// IsEmpty reports whether s is empty after trimming whitespace.
func IsEmpty(s string) bool {
	return strings.TrimSpace(s) == ""
}

// TimeFormat formats t as "2006-01-02 15:04:05".
func TimeFormat(t time.Time) string {
	return t.Format("2006-01-02 15:04:05")
}

// TimeParse parses a "2006-01-02 15:04:05" string.
func TimeParse(s string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02 15:04:05", s, time.Local)
}

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

// IsEmail reports whether s looks like an email address.
func IsEmail(s string) bool {
	return emailPattern.MatchString(s)
}

var phonePattern = regexp.MustCompile(`^(\+63|0)9\d{9}$`)

// IsPhone reports whether s is a Philippine mobile number.
func IsPhone(s string) bool {
	return phonePattern.MatchString(s)
}

// Truncate cuts s to at most maxLen runes, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}

// Ptr returns a pointer to v.
func Ptr[T any](v T) *T {
	return &v
}

// Val dereferences p, returning the zero value when nil.
func Val[T any](p *T) T {
	if p == nil {
		var zero T
		return zero
	}
	return *p
}

// If is a ternary helper.
func If[T any](cond bool, a, b T) T {
	if cond {
		return a
	}
	return b
}

// FormatFileSize renders a byte count as a human readable string.
func FormatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
