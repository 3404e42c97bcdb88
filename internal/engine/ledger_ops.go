package engine

import (
	"context"
	"strconv"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/ledger"
	"github.com/greenlink-eco/credit-engine/internal/store"
	"github.com/greenlink-eco/credit-engine/internal/store/schema"
)

// Mint creates one token outside the submission flow. Requires RoleMinter.
func (e *Engine) Mint(ctx context.Context, caller domain.AccountID, owner domain.AccountID, carbonValue domain.Amount, greeneryPct int, location, fingerprint string) (domain.Token, error) {
	tokens, err := e.BatchMint(ctx, caller,
		[]domain.AccountID{owner},
		[]domain.Amount{carbonValue},
		[]int{greeneryPct},
		[]string{location},
		[]string{fingerprint},
	)
	if err != nil {
		return domain.Token{}, err
	}
	return tokens[0], nil
}

// BatchMint creates tokens from parallel argument slices, all or nothing.
// Mismatched slice lengths fail before any validation. Requires RoleMinter.
func (e *Engine) BatchMint(ctx context.Context, caller domain.AccountID, owners []domain.AccountID, carbonValues []domain.Amount, greeneryPcts []int, locations, fingerprints []string) ([]domain.Token, error) {
	if len(owners) != len(carbonValues) || len(owners) != len(greeneryPcts) ||
		len(owners) != len(locations) || len(owners) != len(fingerprints) {
		return nil, domain.ErrMalformedBatch
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRole(caller, domain.RoleMinter); err != nil {
		return nil, err
	}

	reqs := make([]ledger.MintRequest, len(owners))
	for i := range owners {
		reqs[i] = ledger.MintRequest{
			Owner:            owners[i],
			CarbonValue:      carbonValues[i],
			GreeneryPct:      greeneryPcts[i],
			Location:         locations[i],
			ImageFingerprint: fingerprints[i],
		}
	}

	now := e.now()
	staged, err := e.ledger.StageBatchMint(reqs, now)
	if err != nil {
		return nil, err
	}

	tokens := staged.Tokens()
	events := make([]domain.Event, 0, len(tokens))
	for _, token := range tokens {
		events = append(events, domain.NewEvent(domain.EventTokenMinted, now, tokenData(token)))
	}

	cs := &store.Changeset{Tokens: tokens, Events: events}
	if err := e.commit(ctx, "mint", cs, func() {
		e.ledger.ApplyMint(staged)
	}); err != nil {
		return nil, err
	}
	return tokens, nil
}

// Transfer moves a token the caller holds to another account. Listed tokens
// sit in marketplace custody, so a seller transferring a listed token fails
// the ownership check.
func (e *Engine) Transfer(ctx context.Context, caller, to domain.AccountID, tokenID uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	staged, err := e.ledger.StageTransfer(caller, to, tokenID)
	if err != nil {
		return err
	}

	token, err := e.ledger.MetadataOf(tokenID)
	if err != nil {
		return err
	}
	token.Owner = to

	cs := &store.Changeset{Tokens: []domain.Token{token}}
	return e.commit(ctx, "transfer", cs, func() {
		e.ledger.ApplyTransfer(staged)
	})
}

// MetadataOf returns one token record.
func (e *Engine) MetadataOf(tokenID uint64) (domain.Token, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.MetadataOf(tokenID)
}

// OwnerOf returns the current holder of a token.
func (e *Engine) OwnerOf(tokenID uint64) (domain.AccountID, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.OwnerOf(tokenID)
}

// TokensOwnedBy returns the account's holdings, ascending by id.
func (e *Engine) TokensOwnedBy(account domain.AccountID) []uint64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.TokensOwnedBy(account)
}

// Paused reports whether mints and transfers are halted.
func (e *Engine) Paused() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.Paused()
}

// Pause halts mints and transfers. Requires RoleOperator.
func (e *Engine) Pause(ctx context.Context, caller domain.AccountID) error {
	return e.setPaused(ctx, caller, true)
}

// Unpause resumes mints and transfers. Requires RoleOperator.
func (e *Engine) Unpause(ctx context.Context, caller domain.AccountID) error {
	return e.setPaused(ctx, caller, false)
}

func (e *Engine) setPaused(ctx context.Context, caller domain.AccountID, paused bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRole(caller, domain.RoleOperator); err != nil {
		return err
	}

	op := "pause"
	if !paused {
		op = "unpause"
	}
	cs := &store.Changeset{
		Config: map[string]string{schema.ConfigKeyPaused: strconv.FormatBool(paused)},
	}
	return e.commit(ctx, op, cs, func() {
		e.ledger.SetPaused(paused)
	})
}

// MetadataBaseLocator returns the cosmetic metadata base URI.
func (e *Engine) MetadataBaseLocator() string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ledger.BaseLocator()
}

// SetMetadataBaseLocator updates the cosmetic metadata base URI. Requires
// RoleAdmin.
func (e *Engine) SetMetadataBaseLocator(ctx context.Context, caller domain.AccountID, uri string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.requireRole(caller, domain.RoleAdmin); err != nil {
		return err
	}

	cs := &store.Changeset{
		Config: map[string]string{schema.ConfigKeyBaseLocator: uri},
	}
	return e.commit(ctx, "set_metadata_base_locator", cs, func() {
		e.ledger.SetBaseLocator(uri)
	})
}
