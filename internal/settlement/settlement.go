// Package settlement moves funds for marketplace sales. The engine stages a
// purchase, asks the settler to Prepare the funds split, persists the
// changeset, and only then commits both the settlement and the in-memory
// state. Prepare is the last fallible step: a failed Prepare leaves every
// balance and every component untouched.
package settlement

import (
	"sync"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

//go:generate mockgen -source=settlement.go -destination=../mocks/settlement.go -package=mocks

// Transfer is one leg of a settlement: debit From, credit To.
type Transfer struct {
	From   domain.AccountID
	To     domain.AccountID
	Amount domain.Amount
}

// Settlement is a prepared funds movement awaiting the engine's commit
// point. Commit must not fail; everything fallible happened in Prepare.
type Settlement interface {
	Commit()
}

// Settler validates and executes funds movements.
type Settler interface {
	// Prepare checks that every debit is covered and reserves nothing: the
	// engine holds the write lock from Prepare through Commit, so no other
	// settlement can interleave.
	Prepare(transfers []Transfer) (Settlement, error)
}

// MemorySettler keeps account balances in memory. It backs tests and
// single-node deployments; balances are rebuilt from deposits on restart.
type MemorySettler struct {
	mu       sync.RWMutex
	balances map[domain.AccountID]domain.Amount
}

// NewMemorySettler returns a settler with all balances at zero.
func NewMemorySettler() *MemorySettler {
	return &MemorySettler{balances: make(map[domain.AccountID]domain.Amount)}
}

// Deposit credits an account outside any settlement.
func (s *MemorySettler) Deposit(account domain.AccountID, amount domain.Amount) error {
	if !account.Valid() {
		return domain.ErrInvalidAccount
	}
	if amount <= 0 {
		return domain.ErrInvalidPrice
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.balances[account] += amount
	return nil
}

// BalanceOf returns the current balance of an account.
func (s *MemorySettler) BalanceOf(account domain.AccountID) domain.Amount {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.balances[account]
}

type memorySettlement struct {
	settler   *MemorySettler
	transfers []Transfer
}

// Prepare verifies each debit against the balance left after the preceding
// legs of the same settlement.
func (s *MemorySettler) Prepare(transfers []Transfer) (Settlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pending := make(map[domain.AccountID]domain.Amount)
	for _, t := range transfers {
		if t.Amount < 0 {
			return nil, domain.ErrInvalidPrice
		}
		if s.balances[t.From]+pending[t.From] < t.Amount {
			return nil, domain.ErrInsufficientFunds
		}
		pending[t.From] -= t.Amount
		pending[t.To] += t.Amount
	}

	return &memorySettlement{settler: s, transfers: transfers}, nil
}

func (m *memorySettlement) Commit() {
	m.settler.mu.Lock()
	defer m.settler.mu.Unlock()
	for _, t := range m.transfers {
		m.settler.balances[t.From] -= t.Amount
		m.settler.balances[t.To] += t.Amount
	}
}
