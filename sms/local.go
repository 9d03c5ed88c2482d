package sms

import (
	"context"

	"go.uber.org/zap"
)

// LocalFixedCode is the development fallback: no SMS is sent, the code is
// always "000000", and each use is logged loudly. The core refuses to use it
// unless local fallback is explicitly enabled.
type LocalFixedCode struct {
	log *zap.Logger
}

func NewLocalFixedCode(log *zap.Logger) *LocalFixedCode {
	if log == nil {
		log = zap.NewNop()
	}
	return &LocalFixedCode{log: log}
}

func (l *LocalFixedCode) Name() string       { return "local" }
func (l *LocalFixedCode) IsConfigured() bool { return true }
func (l *LocalFixedCode) FixedCode() string  { return "000000" }

func (l *LocalFixedCode) Send(_ context.Context, phoneNumber, code string) error {
	l.log.Warn("local code delivery, no SMS sent",
		zap.String("phone", phoneNumber),
		zap.String("code", code))
	return nil
}
