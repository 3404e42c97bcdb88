package engine

import (
	"context"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/ledger"
	"github.com/greenlink-eco/credit-engine/internal/store"
)

// RegisterSubmission records a scored observation. The verification verdict
// is computed against the threshold in force now and never revisited except
// by admin override.
func (e *Engine) RegisterSubmission(ctx context.Context, owner domain.AccountID, fingerprint string, greeneryPct int, carbonValue domain.Amount, location string) (domain.Submission, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	staged, err := e.registry.StageRegister(owner, fingerprint, greeneryPct, carbonValue, location, now)
	if err != nil {
		return domain.Submission{}, err
	}
	sub := staged.Submission

	events := []domain.Event{
		domain.NewEvent(domain.EventSubmissionRegistered, now, submissionData(sub)),
	}
	if sub.Verified {
		events = append(events, domain.NewEvent(domain.EventSubmissionVerified, now, submissionData(sub)))
	}

	cs := &store.Changeset{
		Submissions:  []domain.Submission{sub},
		Fingerprints: map[string]uint64{sub.ImageFingerprint: sub.ID},
		Events:       events,
	}
	if err := e.commit(ctx, "register_submission", cs, func() {
		e.registry.ApplyRegister(staged)
	}); err != nil {
		return domain.Submission{}, err
	}
	return sub, nil
}

// Tokenize mints the token backing a verified submission. The mint and the
// tokenized flag commit together or not at all.
func (e *Engine) Tokenize(ctx context.Context, caller domain.AccountID, submissionID uint64) (domain.Token, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	stagedTok, err := e.registry.StageTokenize(submissionID, caller)
	if err != nil {
		return domain.Token{}, err
	}
	sub, err := e.registry.Get(submissionID)
	if err != nil {
		return domain.Token{}, err
	}

	now := e.now()
	stagedMint, err := e.ledger.StageMint(ledger.MintRequest{
		Owner:            sub.Owner,
		CarbonValue:      sub.CarbonValue,
		GreeneryPct:      sub.GreeneryPct,
		Location:         sub.Location,
		ImageFingerprint: sub.ImageFingerprint,
	}, now)
	if err != nil {
		return domain.Token{}, err
	}
	token := stagedMint.Tokens()[0]
	stagedTok.TokenID = token.ID

	sub.Tokenized = true
	tokenID := token.ID
	sub.TokenID = &tokenID

	cs := &store.Changeset{
		Submissions: []domain.Submission{sub},
		Tokens:      []domain.Token{token},
		Events: []domain.Event{
			domain.NewEvent(domain.EventSubmissionTokenized, now, submissionData(sub)),
			domain.NewEvent(domain.EventTokenMinted, now, tokenData(token)),
		},
	}
	if err := e.commit(ctx, "tokenize", cs, func() {
		e.ledger.ApplyMint(stagedMint)
		e.registry.ApplyTokenize(stagedTok)
	}); err != nil {
		return domain.Token{}, err
	}
	return token, nil
}

// Submission returns one submission record.
func (e *Engine) Submission(submissionID uint64) (domain.Submission, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Get(submissionID)
}

// SubmissionsOf returns the owner's submissions, oldest first.
func (e *Engine) SubmissionsOf(owner domain.AccountID) []domain.Submission {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.ListByOwner(owner)
}

// RegistryStats returns aggregate submission counts.
func (e *Engine) RegistryStats() domain.RegistryStats {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Stats()
}

// VerificationThreshold returns the greenery percentage gate for new
// submissions.
func (e *Engine) VerificationThreshold() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.registry.Threshold()
}

func submissionData(sub domain.Submission) domain.SubmissionEventData {
	return domain.SubmissionEventData{
		SubmissionID: sub.ID,
		Owner:        sub.Owner,
		Fingerprint:  sub.ImageFingerprint,
		GreeneryPct:  sub.GreeneryPct,
		CarbonValue:  sub.CarbonValue,
		Location:     sub.Location,
		Verified:     sub.Verified,
		TokenID:      sub.TokenID,
	}
}

func tokenData(token domain.Token) domain.TokenEventData {
	return domain.TokenEventData{
		TokenID:     token.ID,
		Owner:       token.Owner,
		CarbonValue: token.CarbonValue,
		GreeneryPct: token.GreeneryPct,
		Location:    token.Location,
		Fingerprint: token.ImageFingerprint,
	}
}
