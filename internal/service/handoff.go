package service

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/crewbase/crewbase/internal/domain"
	"github.com/google/uuid"
)

// CreateHandoff stores the session behind a fresh single-use code. The code,
// not the session, travels in the redirect URL between applications.
func (s *Service) CreateHandoff(ctx context.Context, session domain.Session) (domain.HandoffCode, error) {
	now := s.now().UTC()
	payload, err := json.Marshal(session)
	if err != nil {
		return domain.HandoffCode{}, fmt.Errorf("encode session: %w", err)
	}

	code := domain.HandoffCode{
		Code:      uuid.NewString(),
		Session:   session,
		ExpiresAt: now.Add(s.handoffTTL),
		CreatedAt: now,
	}
	if err := s.repo.InsertHandoffCode(ctx, code.Code, payload, code.ExpiresAt, now); err != nil {
		return domain.HandoffCode{}, err
	}
	return code, nil
}

// RedeemHandoff consumes a code exactly once and returns the session it
// carried. Expired and already-used codes are indistinguishable to callers.
func (s *Service) RedeemHandoff(ctx context.Context, code string) (domain.Session, error) {
	payload, err := s.repo.RedeemHandoffCode(ctx, code, s.now().UTC())
	if err != nil {
		return domain.Session{}, mapRepoError(err)
	}

	var session domain.Session
	if err := json.Unmarshal(payload, &session); err != nil {
		return domain.Session{}, fmt.Errorf("decode session: %w", err)
	}
	if session.ExpiredAt(s.now().UTC()) {
		return domain.Session{}, ErrHandoffInvalid
	}
	return session, nil
}

// PurgeExpiredHandoffs drops stale codes. Run periodically from the app.
func (s *Service) PurgeExpiredHandoffs(ctx context.Context) (int64, error) {
	return s.repo.PurgeExpiredHandoffCodes(ctx, s.now().UTC())
}
