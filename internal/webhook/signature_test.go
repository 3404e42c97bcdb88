package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/webhook"
)

func testEvent(id string, eventType domain.EventType) domain.Event {
	return domain.Event{
		ID:        id,
		Type:      eventType,
		Timestamp: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Data: domain.TokenEventData{
			TokenID:     1,
			Owner:       "alice",
			CarbonValue: 5 * domain.MicroUnit,
			GreeneryPct: 60,
		},
	}
}

func TestGenerateSignedPayload(t *testing.T) {
	t.Run("generates valid payload and signature", func(t *testing.T) {
		secret := "test-secret-key"
		event := testEvent("01JG8XAMPLE1234567890123456", domain.EventTokenMinted)

		payload, signature, timestamp, err := webhook.GenerateSignedPayload(secret, event)
		require.NoError(t, err)

		// Verify payload is valid JSON carrying the event
		var parsed domain.Event
		err = json.Unmarshal(payload, &parsed)
		require.NoError(t, err)
		assert.Equal(t, event.ID, parsed.ID)
		assert.Equal(t, event.Type, parsed.Type)

		// Verify signature format
		assert.Contains(t, signature, "sha256=")
		assert.Greater(t, len(signature), 7) // "sha256=" + hash

		// Verify timestamp is reasonable (within last few seconds)
		now := time.Now().Unix()
		assert.GreaterOrEqual(t, now, timestamp)
		assert.Less(t, now-timestamp, int64(5))

		// Verify signature can be validated
		signaturePayload := fmt.Sprintf("%d.%s.%s", timestamp, event.ID, string(payload))
		h := hmac.New(sha256.New, []byte(secret))
		h.Write([]byte(signaturePayload))
		expectedSignature := "sha256=" + hex.EncodeToString(h.Sum(nil))
		assert.Equal(t, expectedSignature, signature)
	})

	t.Run("different events produce different signatures", func(t *testing.T) {
		secret := "test-secret-key"

		_, signature1, _, err := webhook.GenerateSignedPayload(secret,
			testEvent("01JG8XAMPLE1111111111111111", domain.EventTokenMinted))
		require.NoError(t, err)

		_, signature2, _, err := webhook.GenerateSignedPayload(secret,
			testEvent("01JG8XAMPLE2222222222222222", domain.EventTokenSold))
		require.NoError(t, err)

		assert.NotEqual(t, signature1, signature2)
	})

	t.Run("different secrets produce different signatures", func(t *testing.T) {
		event := testEvent("01JG8XAMPLE1234567890123456", domain.EventTokenMinted)

		_, signature1, _, err := webhook.GenerateSignedPayload("secret1", event)
		require.NoError(t, err)

		_, signature2, _, err := webhook.GenerateSignedPayload("secret2", event)
		require.NoError(t, err)

		assert.NotEqual(t, signature1, signature2)
	})

	t.Run("signature includes event id to prevent replay", func(t *testing.T) {
		secret := "test-secret-key"

		// Same event data, different event ids
		_, signature1, _, err := webhook.GenerateSignedPayload(secret,
			testEvent("01JG8XAMPLE1111111111111111", domain.EventTokenMinted))
		require.NoError(t, err)

		_, signature2, _, err := webhook.GenerateSignedPayload(secret,
			testEvent("01JG8XAMPLE2222222222222222", domain.EventTokenMinted))
		require.NoError(t, err)

		assert.NotEqual(t, signature1, signature2, "Different event IDs should produce different signatures")
	})

	t.Run("signature can be verified by client", func(t *testing.T) {
		secret := "test-secret-key"
		event := testEvent("01JG8XAMPLE1234567890123456", domain.EventListingCreated)

		payload, signature, timestamp, err := webhook.GenerateSignedPayload(secret, event)
		require.NoError(t, err)

		// Client-side verification
		signaturePayload := fmt.Sprintf("%d.%s.%s", timestamp, event.ID, string(payload))
		h := hmac.New(sha256.New, []byte(secret))
		h.Write([]byte(signaturePayload))
		clientSignature := "sha256=" + hex.EncodeToString(h.Sum(nil))

		assert.Equal(t, signature, clientSignature, "Client should be able to reproduce the signature")
	})
}

func TestSubscriptionMatches(t *testing.T) {
	t.Run("wildcard matches every type", func(t *testing.T) {
		sub := webhook.Subscription{URL: "https://example.org/hook", EventTypes: []string{webhook.EventTypeWildcard}}
		assert.True(t, sub.Matches(string(domain.EventTokenMinted)))
		assert.True(t, sub.Matches(string(domain.EventListingCancelled)))
	})

	t.Run("explicit list matches only named types", func(t *testing.T) {
		sub := webhook.Subscription{
			URL:        "https://example.org/hook",
			EventTypes: []string{string(domain.EventTokenSold)},
		}
		assert.True(t, sub.Matches(string(domain.EventTokenSold)))
		assert.False(t, sub.Matches(string(domain.EventTokenMinted)))
	})

	t.Run("empty list matches everything", func(t *testing.T) {
		sub := webhook.Subscription{URL: "https://example.org/hook"}
		assert.True(t, sub.Matches(string(domain.EventTokenMinted)))
	})
}
