package referral

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ErrGenerationExhausted is returned when no free referral code was found
// within the configured number of attempts.
var ErrGenerationExhausted = errors.New("could not generate unique referral code")

// NormalizeCode trims and upper-cases a code typed by a member.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func codePattern(prefix string, length int) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s-[A-Z0-9]{%d}$`, regexp.QuoteMeta(prefix), length))
}

func randomCode(prefix string, length int) (string, error) {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteByte('-')

	size := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < length; i++ {
		n, err := rand.Int(rand.Reader, size)
		if err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		sb.WriteByte(codeAlphabet[n.Int64()])
	}
	return sb.String(), nil
}
