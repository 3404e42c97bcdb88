// Package ledger owns token identity, ownership and immutable per-token
// metadata. It is a pure state machine: all methods assume the caller holds
// the engine's write lock, and mutations are split into a fallible Stage
// step and an infallible Apply step so the engine can persist a staged
// changeset before any in-memory state moves.
package ledger

import (
	"sort"
	"time"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/sequence"
)

// Ledger tracks every minted token and who currently holds it. Ownership is
// exactly one account per token; the byOwner index is maintained on every
// transition so owner scans stay O(holdings) instead of O(tokens).
type Ledger struct {
	seq     *sequence.Counter
	tokens  map[uint64]*domain.Token
	byOwner map[domain.AccountID]map[uint64]struct{}

	paused      bool
	baseLocator string
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{
		seq:     sequence.New(),
		tokens:  make(map[uint64]*domain.Token),
		byOwner: make(map[domain.AccountID]map[uint64]struct{}),
	}
}

// MintRequest is the metadata for one token to be minted.
type MintRequest struct {
	Owner            domain.AccountID
	CarbonValue      domain.Amount
	GreeneryPct      int
	Location         string
	ImageFingerprint string
}

// StagedMint is a validated mint that has not been applied yet. Token ids
// are already assigned (consecutively for batches) but the sequence is not
// consumed until Apply.
type StagedMint struct {
	tokens []domain.Token
}

// Tokens exposes the tokens this mint will create, for persistence and
// event emission.
func (s *StagedMint) Tokens() []domain.Token {
	return s.tokens
}

// StageMint validates a single mint.
func (l *Ledger) StageMint(req MintRequest, now time.Time) (*StagedMint, error) {
	return l.StageBatchMint([]MintRequest{req}, now)
}

// StageBatchMint validates a batch of mints as a whole: one invalid item
// fails the entire batch with no ids consumed.
func (l *Ledger) StageBatchMint(reqs []MintRequest, now time.Time) (*StagedMint, error) {
	if l.paused {
		return nil, domain.ErrPaused
	}

	staged := &StagedMint{tokens: make([]domain.Token, 0, len(reqs))}
	for i, req := range reqs {
		if !req.Owner.Valid() {
			return nil, domain.ErrInvalidAccount
		}
		if req.CarbonValue <= 0 {
			return nil, domain.ErrInvalidMetadata
		}
		if req.GreeneryPct < 0 || req.GreeneryPct > 100 {
			return nil, domain.ErrInvalidMetadata
		}

		staged.tokens = append(staged.tokens, domain.Token{
			ID:               l.seq.Peek(i),
			Owner:            req.Owner,
			CarbonValue:      req.CarbonValue,
			GreeneryPct:      req.GreeneryPct,
			Location:         req.Location,
			ImageFingerprint: req.ImageFingerprint,
			MintedAt:         now,
		})
	}

	return staged, nil
}

// ApplyMint consumes the staged ids and records the tokens. Must not fail:
// all validation happened in StageBatchMint.
func (l *Ledger) ApplyMint(staged *StagedMint) {
	for i := range staged.tokens {
		token := staged.tokens[i]
		l.tokens[token.ID] = &token
		l.indexOwner(token.Owner, token.ID)
	}
	l.seq.Advance(len(staged.tokens))
}

// StagedTransfer is a validated ownership move that has not been applied.
type StagedTransfer struct {
	From    domain.AccountID
	To      domain.AccountID
	TokenID uint64
}

// StageTransfer validates moving the single unit of ownership of tokenID
// from one account to another.
func (l *Ledger) StageTransfer(from, to domain.AccountID, tokenID uint64) (*StagedTransfer, error) {
	if l.paused {
		return nil, domain.ErrPaused
	}
	if !to.Valid() {
		return nil, domain.ErrInvalidAccount
	}

	token, ok := l.tokens[tokenID]
	if !ok {
		return nil, domain.ErrUnknownToken
	}
	if token.Owner != from {
		return nil, domain.ErrNotOwner
	}

	return &StagedTransfer{From: from, To: to, TokenID: tokenID}, nil
}

// StageForcedTransfer is StageTransfer without the paused gate. Operator
// recovery paths use it so escrowed tokens can go home during a halt.
func (l *Ledger) StageForcedTransfer(from, to domain.AccountID, tokenID uint64) (*StagedTransfer, error) {
	if !to.Valid() {
		return nil, domain.ErrInvalidAccount
	}

	token, ok := l.tokens[tokenID]
	if !ok {
		return nil, domain.ErrUnknownToken
	}
	if token.Owner != from {
		return nil, domain.ErrNotOwner
	}

	return &StagedTransfer{From: from, To: to, TokenID: tokenID}, nil
}

// ApplyTransfer moves ownership and maintains the owner index.
func (l *Ledger) ApplyTransfer(staged *StagedTransfer) {
	token := l.tokens[staged.TokenID]
	delete(l.byOwner[staged.From], staged.TokenID)
	token.Owner = staged.To
	l.indexOwner(staged.To, staged.TokenID)
}

// MetadataOf returns an immutable copy of the token record.
func (l *Ledger) MetadataOf(tokenID uint64) (domain.Token, error) {
	token, ok := l.tokens[tokenID]
	if !ok {
		return domain.Token{}, domain.ErrUnknownToken
	}
	return *token, nil
}

// OwnerOf returns the current holder of tokenID.
func (l *Ledger) OwnerOf(tokenID uint64) (domain.AccountID, error) {
	token, ok := l.tokens[tokenID]
	if !ok {
		return "", domain.ErrUnknownToken
	}
	return token.Owner, nil
}

// TokensOwnedBy returns the ids currently held by account, ascending.
func (l *Ledger) TokensOwnedBy(account domain.AccountID) []uint64 {
	held := l.byOwner[account]
	ids := make([]uint64, 0, len(held))
	for id := range held {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Paused reports whether mutating ledger operations are frozen.
func (l *Ledger) Paused() bool {
	return l.paused
}

// SetPaused freezes or unfreezes mints and transfers.
func (l *Ledger) SetPaused(paused bool) {
	l.paused = paused
}

// BaseLocator returns the cosmetic metadata base URI.
func (l *Ledger) BaseLocator() string {
	return l.baseLocator
}

// SetBaseLocator updates the cosmetic metadata base URI. No invariant
// depends on it.
func (l *Ledger) SetBaseLocator(uri string) {
	l.baseLocator = uri
}

// LastID returns the most recently minted token id.
func (l *Ledger) LastID() uint64 {
	return l.seq.Last()
}

// Restore rebuilds ledger state from persisted tokens during rehydration.
func (l *Ledger) Restore(tokens []domain.Token, paused bool, baseLocator string) {
	var last uint64
	for i := range tokens {
		token := tokens[i]
		l.tokens[token.ID] = &token
		l.indexOwner(token.Owner, token.ID)
		if token.ID > last {
			last = token.ID
		}
	}
	l.seq.Restore(last)
	l.paused = paused
	l.baseLocator = baseLocator
}

func (l *Ledger) indexOwner(owner domain.AccountID, tokenID uint64) {
	held, ok := l.byOwner[owner]
	if !ok {
		held = make(map[uint64]struct{})
		l.byOwner[owner] = held
	}
	held[tokenID] = struct{}{}
}
