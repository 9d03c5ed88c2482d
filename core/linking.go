package core

// Linking Decision Engine: a pure classification of an existing identity
// against newly supplied credentials. The result is advisory; callers decide
// whether to merge or to return a conflict.

type LinkingType string

const (
	LinkCodeToUnified     LinkingType = "code_to_unified"
	LinkPasswordToUnified LinkingType = "password_to_unified"
	LinkNone              LinkingType = ""
)

type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
)

// LinkingAnalysis classifies a found account as linkable, mergeable, or
// blocked, with a confidence level and a human-readable reason.
type LinkingAnalysis struct {
	CanLink    bool
	ShouldLink bool
	Type       LinkingType
	Confidence Confidence
	Reason     string
}

// AnalyzeLinking evaluates the classification rules in order; first match
// wins.
//
//  1. Passwordless account created via one-time code or social login: the new
//     email+password can be attached.
//  2. Email+password account without a phone, and a phone is newly supplied:
//     the phone can be attached.
//  3. Fully unified account: blocked, the caller must log in instead.
func AnalyzeLinking(existing *Identity, newEmail, newPhone string) LinkingAnalysis {
	passwordless := existing.PasswordHash == nil &&
		(existing.RegistrationMethod == MethodOneTimeCode ||
			existing.RegistrationMethod == MethodSocial ||
			existing.AccountType == AccountCodeOnly ||
			existing.CanLinkEmail)
	if passwordless {
		return LinkingAnalysis{
			CanLink:    true,
			ShouldLink: true,
			Type:       LinkCodeToUnified,
			Confidence: ConfidenceHigh,
			Reason:     "account has no password; email and password will be attached",
		}
	}

	if existing.Email != nil && existing.PasswordHash != nil && existing.Phone == nil && newPhone != "" {
		return LinkingAnalysis{
			CanLink:    true,
			ShouldLink: true,
			Type:       LinkPasswordToUnified,
			Confidence: ConfidenceMedium,
			Reason:     "account has email and password but no phone; phone will be attached",
		}
	}

	return LinkingAnalysis{
		CanLink:    false,
		ShouldLink: false,
		Type:       LinkNone,
		Confidence: ConfidenceHigh,
		Reason:     "account is already fully set up; log in instead of registering",
	}
}
