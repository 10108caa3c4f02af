package lockbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/teamforge/lockbox/store"
)

// Engine defines a public type used by the lockbox engine APIs.
//
// Engine instances are intended to be configured during initialization
// through [Builder.Build] and then treated as immutable. The Engine
// exclusively owns session record writes; verifier call sites only read.
type Engine struct {
	config    Config
	verifier  *AccessVerifier
	store     store.Store
	directory UserDirectory
	audit     *auditDispatcher
	metrics   *Metrics
}

// Close describes the close operation and its observable behavior.
//
// Close drains the audit queue; it does not touch the store.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics returns the engine's live metrics instance so co-hosted tiers
// (the real-time gateway) count into the same snapshot instead of a
// disjoint one.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

// Verifier returns the stateless verification core so other tiers (the
// real-time gateway) can admit credentials without a store round-trip.
func (e *Engine) Verifier() *AccessVerifier {
	if e == nil {
		return nil
	}
	return e.verifier
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// Issue mints a device-bound access/refresh credential pair for a validated
// user and replaces the user's session record. The identity claim binds the
// issuing request's IP and user-agent (supplied via [WithClientIP] and
// [WithUserAgent]); issuing on one device silently invalidates every other
// device's session.
func (e *Engine) Issue(ctx context.Context, userID string) (*Credentials, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	if !validUserID(userID) {
		e.metricInc(MetricIssueRejected)
		e.emitAudit(ctx, auditEventIssueRejected, false, userID, ErrInvalidUserID, nil)
		return nil, ErrInvalidUserID
	}

	exists, err := e.directory.Exists(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDirectoryUnavailable, err)
	}
	if !exists {
		e.metricInc(MetricIssueRejected)
		e.emitAudit(ctx, auditEventIssueRejected, false, userID, ErrUserNotFound, nil)
		return nil, ErrUserNotFound
	}

	fp := fingerprintFromContext(ctx)
	claim := IdentityClaim{
		UserID:    userID,
		IP:        fp.IP,
		UserAgent: fp.UserAgent,
	}
	plain, err := json.Marshal(claim)
	if err != nil {
		return nil, err
	}

	payload, err := e.verifier.box.Encrypt(plain)
	if err != nil {
		return nil, err
	}

	access, err := e.verifier.envelopes.SignAccess(payload)
	if err != nil {
		return nil, err
	}
	refresh, err := e.verifier.envelopes.SignRefresh()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(e.config.Envelope.AccessTTL)
	rec := store.Record{
		UserID:            userID,
		AccessCredential:  access,
		RefreshCredential: refresh,
		Payload:           payload,
		ExpiresAt:         expiresAt,
	}
	if err := e.store.Upsert(ctx, rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventIssueSuccess, true, userID, nil, nil)

	return &Credentials{
		AccessCredential:  access,
		RefreshCredential: refresh,
		ExpiresAt:         expiresAt,
	}, nil
}

// Refresh rotates a credential pair. The presented refresh credential must
// verify against the signing-key candidates and must be the store's current
// credential for some user; a credential superseded by a later rotation is
// indistinguishable from one never issued. The new access credential is
// bound to the refreshing request's fingerprint; the refresh credential
// itself is deliberately not device-bound.
func (e *Engine) Refresh(ctx context.Context, oldRefresh string) (*Credentials, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	if err := e.verifier.envelopes.VerifyRefresh(oldRefresh); err != nil {
		e.metricInc(MetricRefreshRejected)
		e.emitAudit(ctx, auditEventRefreshRejected, false, "", err, nil)
		return nil, ErrInvalidToken
	}

	rec, err := e.store.FindByRefreshCredential(ctx, oldRefresh)
	if errors.Is(err, store.ErrRecordNotFound) {
		e.metricInc(MetricRefreshReplay)
		e.emitAudit(ctx, auditEventRefreshReplay, false, "", ErrUnknownRefreshToken, nil)
		return nil, ErrUnknownRefreshToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	// The stored payload recovers the user id; the refresh path needs
	// nothing else from the claim.
	plain, err := e.verifier.box.Decrypt(rec.Payload)
	if err != nil {
		e.metricInc(MetricRefreshRejected)
		e.emitAudit(ctx, auditEventRefreshRejected, false, rec.UserID, err, nil)
		return nil, ErrInvalidToken
	}
	var claim IdentityClaim
	if err := json.Unmarshal(plain, &claim); err != nil {
		e.metricInc(MetricRefreshRejected)
		e.emitAudit(ctx, auditEventRefreshRejected, false, rec.UserID, err, nil)
		return nil, ErrInvalidToken
	}

	creds, err := e.Issue(ctx, claim.UserID)
	if err != nil {
		return nil, err
	}

	e.metricInc(MetricRefreshSuccess)
	e.emitAudit(ctx, auditEventRefreshSuccess, true, claim.UserID, nil, nil)

	return creds, nil
}

// VerifyAccess is the HTTP-tier verifier: it resolves the caller's live
// fingerprint from ctx, verifies the envelope, decrypts the payload, and
// requires the claim's ip, user-agent, and user id to exactly match the
// fingerprint's ip, user-agent, and session correlation id. Every failure is
// returned as [ErrInvalidToken]; the specific cause is audited only.
func (e *Engine) VerifyAccess(ctx context.Context, env string) (*IdentityClaim, error) {
	if e == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	fp := fingerprintFromContext(ctx)
	claim, err := e.verifier.Check(env, fp)
	if e.metrics != nil {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}

	if err != nil {
		e.metricInc(MetricVerifyRejected)
		if errors.Is(err, ErrDeviceMismatch) {
			e.metricInc(MetricDeviceMismatch)
		}
		e.emitAudit(ctx, auditEventVerifyRejected, false, "", err, nil)
		return nil, ErrInvalidToken
	}

	e.metricInc(MetricVerifySuccess)
	return claim, nil
}

func validUserID(userID string) bool {
	if userID == "" || len(userID) > 128 {
		return false
	}
	if strings.TrimSpace(userID) != userID {
		return false
	}
	for _, r := range userID {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
