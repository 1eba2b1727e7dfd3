// Package handle resolves contact handles (e-mail, phone) and addresses to
// directory profiles.
package handle

import (
	"context"
	"errors"
	"strings"
	"unicode"

	"github.com/Klingon-tech/klingpay/pkg/types"
)

// ErrNotFound is returned when the directory has no entry for a query.
var ErrNotFound = errors.New("handle not found")

// Profile is a directory entry.
type Profile struct {
	Handle      string        `json:"handle"`
	DisplayName string        `json:"display_name"`
	AvatarURL   string        `json:"avatar_url,omitempty"`
	Address     types.Address `json:"address"`
}

// Resolver looks up a handle, or the owner of an address, in the contact
// directory.
type Resolver interface {
	Resolve(ctx context.Context, handleOrAddress string) (*Profile, error)
}

// Normalize canonicalizes a query: e-mail handles are lowercased, phone
// numbers keep only a leading '+' and digits, addresses are trimmed.
func Normalize(q string) string {
	q = strings.TrimSpace(q)
	switch {
	case strings.Contains(q, "@"):
		return strings.ToLower(q)
	case looksLikePhone(q):
		var b strings.Builder
		for i, r := range q {
			if unicode.IsDigit(r) || (r == '+' && i == 0) {
				b.WriteRune(r)
			}
		}
		return b.String()
	default:
		return q
	}
}

func looksLikePhone(q string) bool {
	digits := 0
	for _, r := range q {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == '+' || r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			return false
		}
	}
	return digits >= 5
}
