package recipients

import (
	"regexp"
	"strings"

	"MailBlast/internal/models"
)

var addressPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Parse splits a comma-separated recipient list. Every non-empty trimmed
// token is returned in input order; malformed tokens are kept with
// IsValid=false. Duplicates are preserved.
func Parse(raw string) []models.Recipient {
	tokens := split(raw)

	out := make([]models.Recipient, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, Check(tok))
	}
	return out
}

// Check validates a single already-trimmed address.
func Check(address string) models.Recipient {
	return models.Recipient{
		Address: address,
		IsValid: addressPattern.MatchString(address),
	}
}

// Valid returns the addresses flagged valid, in order.
func Valid(rs []models.Recipient) []models.Recipient {
	out := make([]models.Recipient, 0, len(rs))
	for _, r := range rs {
		if r.IsValid {
			out = append(out, r)
		}
	}
	return out
}

// Count returns the number of valid and invalid entries.
func Count(rs []models.Recipient) (valid, invalid int) {
	for _, r := range rs {
		if r.IsValid {
			valid++
		} else {
			invalid++
		}
	}
	return valid, invalid
}

// Remove drops every token equal to address from raw and rejoins the
// remainder with ", ".
func Remove(raw, address string) string {
	tokens := split(raw)

	kept := tokens[:0]
	for _, tok := range tokens {
		if tok != address {
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, ", ")
}

func split(raw string) []string {
	parts := strings.Split(raw, ",")

	tokens := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		tokens = append(tokens, p)
	}
	return tokens
}
