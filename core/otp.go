package core

import (
	"context"
	"errors"
	"regexp"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var reNumericCode = regexp.MustCompile(`^[0-9]{4,8}$`)

// Send flow state machine. Providers are attempted strictly in priority
// order; the first configured strategy that reports genuine success wins.
type sendState int

const (
	sendStart sendState = iota
	sendTryPrimary
	sendTrySecondary
	sendFallbackLocal
	sendExhausted
)

// nextSendState is the single transition function for the send flow.
func nextSendState(st sendState) sendState {
	switch st {
	case sendStart:
		return sendTryPrimary
	case sendTryPrimary:
		return sendTrySecondary
	case sendTrySecondary:
		return sendFallbackLocal
	default:
		return sendExhausted
	}
}

func (s *Service) strategyFor(st sendState) CodeStrategy {
	idx := int(st - sendTryPrimary)
	if idx < 0 || idx >= len(s.chain) {
		return nil
	}
	return s.chain[idx]
}

// SendResult reports which provider delivered the code and how long the
// attempt stays valid.
type SendResult struct {
	Provider  string
	ExpiresIn time.Duration
}

// SendVerificationCode issues a one-time code for the phone through the
// delivery chain. At most MaxSendsPerWindow sends per phone per rolling
// window, enforced by counting persisted attempts; exceeding it fails fast
// with a retry-after duration without contacting any provider.
func (s *Service) SendVerificationCode(ctx context.Context, phoneRaw string) (*SendResult, error) {
	canonical := s.normalizer.Normalize(phoneRaw)
	if canonical == "" {
		return nil, &ValidationError{Field: "phone", Reason: "no digits"}
	}

	now := s.now()
	windowStart := now.Add(-s.opts.SendWindow)
	sent, err := s.attempts.CountSentSince(ctx, canonical, windowStart)
	if err != nil {
		return nil, err
	}
	if sent >= s.opts.MaxSendsPerWindow {
		retryAfter := s.opts.SendWindow
		if oldest, err := s.attempts.OldestSentSince(ctx, canonical, windowStart); err == nil && oldest != nil {
			retryAfter = oldest.CreatedAt.Add(s.opts.SendWindow).Sub(now)
			if retryAfter < 0 {
				retryAfter = 0
			}
		}
		return nil, &RateLimitError{RetryAfter: retryAfter}
	}

	for st := nextSendState(sendStart); st != sendExhausted; st = nextSendState(st) {
		strat := s.strategyFor(st)
		if strat == nil || !strat.IsConfigured() {
			continue
		}
		proof, err := s.dispatchSend(ctx, strat, canonical)
		if err != nil {
			// A sentinel fallback response counts as a failure for chain
			// purposes; either way, move on to the next strategy.
			s.log.Warn("code delivery failed, trying next provider",
				zap.String("provider", strat.Name()),
				zap.Bool("fallback_sentinel", errors.Is(err, ErrProviderFallback)),
				zap.Error(err))
			continue
		}
		attempt := &VerificationAttempt{
			ID:        uuid.NewString(),
			Phone:     canonical,
			Proof:     proof,
			Provider:  strat.Name(),
			ExpiresAt: now.Add(s.opts.CodeTTL),
			CreatedAt: now,
		}
		if err := s.attempts.Insert(ctx, attempt); err != nil {
			return nil, err
		}
		s.log.Info("verification code sent",
			zap.String("provider", strat.Name()))
		return &SendResult{Provider: strat.Name(), ExpiresIn: s.opts.CodeTTL}, nil
	}

	return nil, &ProviderError{Provider: "chain", Err: errors.New("all delivery strategies failed or unconfigured")}
}

func (s *Service) dispatchSend(ctx context.Context, strat CodeStrategy, phoneNumber string) (CodeProof, error) {
	switch p := strat.(type) {
	case RemoteCodeStrategy:
		ref, err := p.Send(ctx, phoneNumber)
		if err != nil {
			return nil, &ProviderError{Provider: p.Name(), Err: err}
		}
		return RemoteValidated{Reference: ref}, nil
	case FixedCodeStrategy:
		if !s.opts.AllowLocalFallback {
			return nil, &ProviderError{Provider: p.Name(), Err: errors.New("local fallback disabled")}
		}
		code := p.FixedCode()
		if err := p.Send(ctx, phoneNumber, code); err != nil {
			return nil, &ProviderError{Provider: p.Name(), Err: err}
		}
		return LocallyHashed{Digest: sha256Hex(code)}, nil
	case DirectCodeStrategy:
		code := randNumeric(s.opts.CodeLength)
		if err := p.Send(ctx, phoneNumber, code); err != nil {
			return nil, &ProviderError{Provider: p.Name(), Err: err}
		}
		return LocallyHashed{Digest: sha256Hex(code)}, nil
	default:
		return nil, &ProviderError{Provider: strat.Name(), Err: errors.New("strategy implements no send capability")}
	}
}

// consumeVerificationCode validates a submitted code against the most recent
// attempt for the phone. Single use: the attempt is deleted on success, and
// after MaxVerifyFailures cumulative failures. Expiry is enforced regardless
// of failure count. Returns the canonical phone on success.
func (s *Service) consumeVerificationCode(ctx context.Context, phoneRaw, code string) (string, error) {
	canonical := s.normalizer.Normalize(phoneRaw)
	if canonical == "" {
		return "", &ValidationError{Field: "phone", Reason: "no digits"}
	}
	if !reNumericCode.MatchString(code) {
		return "", &ValidationError{Field: "code", Reason: "malformed code"}
	}

	attempt, err := s.attempts.LatestByPhone(ctx, canonical)
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidOrExpiredCode
	}
	if err != nil {
		return "", err
	}
	if attempt.Expired(s.now()) {
		return "", ErrInvalidOrExpiredCode
	}

	var approved bool
	switch proof := attempt.Proof.(type) {
	case RemoteValidated:
		checker := s.remoteChecker(attempt.Provider)
		if checker == nil {
			return "", &ProviderError{Provider: attempt.Provider, Err: errors.New("remote validator unavailable")}
		}
		approved, err = checker.Check(ctx, canonical, code)
		if err != nil {
			return "", &ProviderError{Provider: attempt.Provider, Err: err}
		}
	case LocallyHashed:
		approved = sha256Hex(code) == proof.Digest
	default:
		return "", errors.New("identitykit: unknown code proof shape")
	}

	if !approved {
		failures, ferr := s.attempts.RecordFailure(ctx, attempt.ID)
		if ferr == nil && failures >= s.opts.MaxVerifyFailures {
			_ = s.attempts.Delete(ctx, attempt.ID)
		}
		return "", ErrInvalidOrExpiredCode
	}

	if err := s.attempts.Delete(ctx, attempt.ID); err != nil {
		return "", err
	}
	return canonical, nil
}

func (s *Service) remoteChecker(providerName string) RemoteCodeStrategy {
	for _, strat := range s.chain {
		if r, ok := strat.(RemoteCodeStrategy); ok && r.Name() == providerName {
			return r
		}
	}
	return nil
}
