package core

import (
	"context"
	"regexp"
	"strings"

	"go.uber.org/zap"
)

var reEmail = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Resolution is the outcome of an identity lookup. When Found, Analysis
// carries the linking classification against the supplied credentials.
type Resolution struct {
	Found    bool
	Identity *Identity
	Analysis *LinkingAnalysis
}

// ResolveIdentity finds an existing account by email and/or phone, searching
// every stored phone variant. Read-only. More than one match for the unique
// keys is surfaced as an integrity fault, never silently picked from.
func (s *Service) ResolveIdentity(ctx context.Context, email, phoneRaw string) (Resolution, error) {
	email = normalizeEmail(email)
	if email != "" && !reEmail.MatchString(email) {
		return Resolution{}, &ValidationError{Field: "email", Reason: "malformed address"}
	}
	canonical := ""
	var variants []string
	if strings.TrimSpace(phoneRaw) != "" {
		canonical = s.normalizer.Normalize(phoneRaw)
		if canonical == "" {
			return Resolution{}, &ValidationError{Field: "phone", Reason: "no digits"}
		}
		variants = s.normalizer.Variants(canonical)
	}
	if email == "" && canonical == "" {
		return Resolution{}, &ValidationError{Field: "identifier", Reason: "email or phone required"}
	}

	matches, err := s.identities.Find(ctx, IdentityQuery{Email: email, PhoneVariants: variants})
	if err != nil {
		return Resolution{}, err
	}
	switch len(matches) {
	case 0:
		return Resolution{Found: false}, nil
	case 1:
		ident := matches[0]
		analysis := AnalyzeLinking(&ident, email, canonical)
		return Resolution{Found: true, Identity: &ident, Analysis: &analysis}, nil
	default:
		key := email
		if key == "" {
			key = canonical
		}
		fault := &IntegrityFaultError{Key: key, Matches: len(matches)}
		s.log.Error("identity resolver integrity fault",
			zap.String("key", key),
			zap.Int("matches", len(matches)))
		return Resolution{}, fault
	}
}
