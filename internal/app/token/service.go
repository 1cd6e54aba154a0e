// Package token issues and validates the opaque bearer tokens that stand in
// for authentication on the public endpoints. A token authorizes exactly one
// order for one purpose; issuing again for the same order and purpose
// replaces the old token immediately.
package token

import (
	"context"
	"crypto/rand"
	"fmt"
	"strconv"
	"time"

	"github.com/alemudanse/dispatch/internal/adapter/logger"
	"github.com/alemudanse/dispatch/internal/domain"
	"github.com/alemudanse/dispatch/internal/interfaces"
)

const (
	PurposePOD   = "pod"
	PurposeTrack = "track"
)

// Length of every issued token.
const Length = 32

// Printable characters excluding the ambiguous ones (0/O, 1/l/I) since
// tokens end up in SMS messages typed by hand.
const alphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnpqrstuvwxyz"

type Service struct {
	store  interfaces.OrderStore
	logger logger.Logger
	now    func() time.Time
}

func NewService(store interfaces.OrderStore, lgr logger.Logger) *Service {
	return &Service{
		store:  store,
		logger: lgr,
		now:    time.Now,
	}
}

// Issue stores a fresh token and absolute expiry on the order, overwriting
// any prior token for the same purpose, and returns the token.
func (s *Service) Issue(ctx context.Context, orderID, purpose string, ttl time.Duration) (string, error) {
	tokenKey, expiresKey, err := metaKeys(purpose)
	if err != nil {
		return "", err
	}

	tok, err := generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	if err := s.store.SetMeta(ctx, orderID, tokenKey, tok); err != nil {
		return "", err
	}
	expires := strconv.FormatInt(s.now().Add(ttl).Unix(), 10)
	if err := s.store.SetMeta(ctx, orderID, expiresKey, expires); err != nil {
		return "", err
	}

	s.logger.Debug("token_issued", "Token issued", "", map[string]interface{}{
		"order_id": orderID,
		"purpose":  purpose,
	})
	return tok, nil
}

// Validate resolves a token to the order it authorizes. Lookup is exact
// match only. Expiry is checked at read time; an expired token stays stored
// and keeps failing with the expired kind rather than not-found.
func (s *Service) Validate(ctx context.Context, tok, purpose string) (string, error) {
	if tok == "" {
		return "", domain.E(domain.KindInvalidParams, "missing token")
	}
	tokenKey, expiresKey, err := metaKeys(purpose)
	if err != nil {
		return "", err
	}

	orderID, err := s.store.FindByMeta(ctx, tokenKey, tok)
	if err != nil {
		return "", err
	}
	if orderID == "" {
		return "", domain.E(domain.KindNotFound, "invalid token")
	}

	if err := s.checkExpiry(ctx, orderID, expiresKey); err != nil {
		return "", err
	}
	return orderID, nil
}

// CheckExpiry re-runs only the expiry half of validation for an order that
// was matched by other means (the order-number+email tracking fallback).
func (s *Service) CheckExpiry(ctx context.Context, orderID, purpose string) error {
	_, expiresKey, err := metaKeys(purpose)
	if err != nil {
		return err
	}
	return s.checkExpiry(ctx, orderID, expiresKey)
}

// Consume clears the token pair after a one-shot flow completes. The POD
// confirmation deliberately does not consume so repeated visits to the
// confirmation link stay idempotent.
func (s *Service) Consume(ctx context.Context, orderID, purpose string) error {
	tokenKey, expiresKey, err := metaKeys(purpose)
	if err != nil {
		return err
	}
	if err := s.store.DeleteMeta(ctx, orderID, tokenKey); err != nil {
		return err
	}
	return s.store.DeleteMeta(ctx, orderID, expiresKey)
}

func (s *Service) checkExpiry(ctx context.Context, orderID, expiresKey string) error {
	raw, err := s.store.GetMeta(ctx, orderID, expiresKey)
	if err != nil {
		return err
	}
	if raw == "" {
		return nil
	}
	expires, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil
	}
	if s.now().Unix() > expires {
		return domain.E(domain.KindExpired, "token expired")
	}
	return nil
}

func metaKeys(purpose string) (tokenKey, expiresKey string, err error) {
	switch purpose {
	case PurposePOD:
		return domain.MetaPODToken, domain.MetaPODExpires, nil
	case PurposeTrack:
		return domain.MetaTrackToken, domain.MetaTrackExpires, nil
	}
	return "", "", domain.E(domain.KindInvalidParams, "unknown token purpose")
}

func generate() (string, error) {
	buf := make([]byte, Length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf), nil
}
