package digest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/mcnijman/go-emailaddress"
)

// ErrInvalidRecipient marks a recipient address that failed validation
var ErrInvalidRecipient = errors.New("invalid email address")

// SplitRecipients separates a recipient list into valid and invalid
// addresses. Whitespace is trimmed and duplicates are dropped.
func SplitRecipients(recipients []string) (valid, invalid []string) {
	seen := make(map[string]bool, len(recipients))

	for _, raw := range recipients {
		addr := strings.TrimSpace(raw)
		if addr == "" {
			continue
		}

		email, err := emailaddress.Parse(addr)
		if err != nil {
			invalid = append(invalid, addr)
			continue
		}

		normalized := strings.ToLower(email.String())
		if seen[normalized] {
			continue
		}
		seen[normalized] = true

		valid = append(valid, normalized)
	}

	return valid, invalid
}

// ValidateRecipients returns an error naming the first invalid address,
// used when saving the schedule config.
func ValidateRecipients(recipients []string) error {
	_, invalid := SplitRecipients(recipients)
	if len(invalid) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidRecipient, invalid[0])
	}

	return nil
}
