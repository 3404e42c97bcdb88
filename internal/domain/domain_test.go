package domain_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlink-eco/credit-engine/internal/domain"
)

func TestAmount(t *testing.T) {
	t.Run("float conversion rounds to the nearest micro-unit", func(t *testing.T) {
		assert.Equal(t, domain.Amount(2_500_000), domain.AmountFromFloat(2.5))
		assert.Equal(t, domain.Amount(2), domain.AmountFromFloat(0.0000019))
		assert.Equal(t, 2.5, domain.Amount(2_500_000).Float())
	})

	t.Run("inexact float representations do not lose a micro-unit", func(t *testing.T) {
		// 0.29 is not exactly representable; truncation would yield 289999.
		assert.Equal(t, domain.Amount(290_000), domain.AmountFromFloat(0.29))
		assert.Equal(t, domain.Amount(100_000), domain.AmountFromFloat(0.1))
	})

	t.Run("formats with six decimal places", func(t *testing.T) {
		assert.Equal(t, "2.500000", domain.Amount(2_500_000).String())
		assert.Equal(t, "0.000003", domain.Amount(3).String())
	})
}

func TestErrorClassification(t *testing.T) {
	t.Run("kind and code survive wrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("buy listing 7: %w", domain.ErrInsufficientFunds)

		require.True(t, errors.Is(wrapped, domain.ErrInsufficientFunds))
		assert.Equal(t, domain.KindStateConflict, domain.KindOf(wrapped))
		assert.Equal(t, "insufficient_funds", domain.CodeOf(wrapped))
	})

	t.Run("unknown errors report empty", func(t *testing.T) {
		assert.Equal(t, domain.ErrorKind(""), domain.KindOf(errors.New("boom")))
		assert.Equal(t, "", domain.CodeOf(errors.New("boom")))
	})
}

func TestRoleSet(t *testing.T) {
	rs := domain.NewRoleSet(domain.RoleMinter)
	assert.True(t, rs.Has(domain.RoleMinter))
	assert.False(t, rs.Has(domain.RoleAdmin))

	rs.Grant(domain.RoleAdmin)
	rs.Revoke(domain.RoleMinter)
	assert.True(t, rs.Has(domain.RoleAdmin))
	assert.False(t, rs.Has(domain.RoleMinter))
}

func TestEventIDOrdering(t *testing.T) {
	t.Run("ids at increasing timestamps sort lexicographically", func(t *testing.T) {
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		first := domain.NewEvent(domain.EventTokenMinted, base, nil)
		second := domain.NewEvent(domain.EventTokenMinted, base.Add(time.Second), nil)

		assert.Len(t, first.ID, 26)
		assert.Less(t, first.ID, second.ID)
	})
}
