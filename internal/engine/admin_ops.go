package engine

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/market"
	"github.com/greenlink-eco/credit-engine/internal/store"
	"github.com/greenlink-eco/credit-engine/internal/store/schema"
)

// SetVerificationThreshold changes the greenery gate for future
// registrations only. Requires RoleAdmin.
func (e *Engine) SetVerificationThreshold(ctx context.Context, caller domain.AccountID, pct int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRole(caller, domain.RoleAdmin); err != nil {
		return err
	}
	if pct < 0 || pct > 100 {
		return domain.ErrInvalidThreshold
	}

	cs := &store.Changeset{
		Config: map[string]string{schema.ConfigKeyThresholdPct: strconv.Itoa(pct)},
		Events: []domain.Event{
			domain.NewEvent(domain.EventThresholdUpdated, e.now(), domain.ConfigEventData{ThresholdPct: &pct}),
		},
	}
	return e.commit(ctx, "set_verification_threshold", cs, func() {
		_ = e.registry.SetThreshold(pct)
	})
}

// SetPlatformFeeBps changes the fee applied to future sales. Requires
// RoleAdmin.
func (e *Engine) SetPlatformFeeBps(ctx context.Context, caller domain.AccountID, bps int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRole(caller, domain.RoleAdmin); err != nil {
		return err
	}
	if bps < 0 || bps > market.MaxFeeBps {
		return domain.ErrInvalidFee
	}

	cs := &store.Changeset{
		Config: map[string]string{schema.ConfigKeyPlatformFeeBps: strconv.Itoa(bps)},
		Events: []domain.Event{
			domain.NewEvent(domain.EventPlatformFeeUpdated, e.now(), domain.ConfigEventData{PlatformFeeBps: &bps}),
		},
	}
	return e.commit(ctx, "set_platform_fee", cs, func() {
		_ = e.market.SetFeeBps(bps)
	})
}

// AdminOverrideSubmission rewrites a submission's score fields. The
// verified flag is recomputed against the current threshold; the tokenized
// flag and any minted token are never revoked. Requires RoleAdmin.
func (e *Engine) AdminOverrideSubmission(ctx context.Context, caller domain.AccountID, submissionID uint64, greeneryPct int, carbonValue domain.Amount) (domain.Submission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRole(caller, domain.RoleAdmin); err != nil {
		return domain.Submission{}, err
	}

	staged, err := e.registry.StageOverride(submissionID, greeneryPct, carbonValue)
	if err != nil {
		return domain.Submission{}, err
	}

	sub, err := e.registry.Get(submissionID)
	if err != nil {
		return domain.Submission{}, err
	}
	sub.GreeneryPct = staged.GreeneryPct
	sub.CarbonValue = staged.CarbonValue
	sub.Verified = staged.Verified

	var events []domain.Event
	if staged.BecameVerified {
		events = append(events, domain.NewEvent(domain.EventSubmissionVerified, e.now(), submissionData(sub)))
	}

	cs := &store.Changeset{
		Submissions: []domain.Submission{sub},
		Events:      events,
	}
	if err := e.commit(ctx, "admin_override_submission", cs, func() {
		e.registry.ApplyOverride(staged)
	}); err != nil {
		return domain.Submission{}, err
	}
	return sub, nil
}

// GrantRole adds a capability to an account. Requires RoleAdmin.
func (e *Engine) GrantRole(ctx context.Context, caller, account domain.AccountID, role domain.Role) error {
	return e.changeRole(ctx, caller, account, role, true)
}

// RevokeRole removes a capability from an account. Requires RoleAdmin.
func (e *Engine) RevokeRole(ctx context.Context, caller, account domain.AccountID, role domain.Role) error {
	return e.changeRole(ctx, caller, account, role, false)
}

func (e *Engine) changeRole(ctx context.Context, caller, account domain.AccountID, role domain.Role, grant bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRole(caller, domain.RoleAdmin); err != nil {
		return err
	}
	if !account.Valid() {
		return domain.ErrInvalidAccount
	}

	rs, ok := e.roles[account]
	if !ok {
		rs = domain.NewRoleSet()
	}
	next := domain.NewRoleSet()
	for r := range rs {
		next.Grant(r)
	}
	if grant {
		next.Grant(role)
	} else {
		next.Revoke(role)
	}

	op := "grant_role"
	if !grant {
		op = "revoke_role"
	}
	cs := &store.Changeset{
		Config: map[string]string{rolePrefix + string(account): encodeRoles(next)},
	}
	return e.commit(ctx, op, cs, func() {
		e.roles[account] = next
	})
}

// RolesOf returns the account's capabilities, sorted for stable output.
func (e *Engine) RolesOf(account domain.AccountID) []domain.Role {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rs := e.roles[account]
	out := make([]domain.Role, 0, len(rs))
	for r := range rs {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ListEvents reads the committed event journal.
func (e *Engine) ListEvents(ctx context.Context, filter store.EventFilter) ([]domain.Event, error) {
	return e.store.ListEvents(ctx, filter)
}

func encodeRoles(rs domain.RoleSet) string {
	names := make([]string, 0, len(rs))
	for r := range rs {
		names = append(names, string(r))
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}
