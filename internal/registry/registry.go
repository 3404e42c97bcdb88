// Package registry owns submission records and gates their eligibility for
// tokenization. Like the ledger it is a pure state machine driven by the
// engine: Stage methods validate against current state, Apply methods commit
// what was staged. Submissions are append-only; nothing is ever deleted.
package registry

import (
	"time"

	"github.com/greenlink-eco/credit-engine/internal/domain"
	"github.com/greenlink-eco/credit-engine/internal/sequence"
)

// DefaultVerificationThreshold is the minimum greenery percentage a
// submission needs at registration time to become verified.
const DefaultVerificationThreshold = 20

// Registry tracks submissions and the permanent fingerprint index. Aggregate
// counters are maintained incrementally on each transition so Stats never
// scans.
type Registry struct {
	seq           *sequence.Counter
	subs          map[uint64]*domain.Submission
	byFingerprint map[string]uint64

	threshold int

	verifiedCount  int
	tokenizedCount int
	carbonTotal    domain.Amount
}

// New returns an empty registry with the default verification threshold.
func New() *Registry {
	return &Registry{
		seq:           sequence.New(),
		subs:          make(map[uint64]*domain.Submission),
		byFingerprint: make(map[string]uint64),
		threshold:     DefaultVerificationThreshold,
	}
}

// StagedRegistration is a validated registration that has not been applied.
type StagedRegistration struct {
	Submission domain.Submission
}

// StageRegister validates a new submission. The verified flag is computed
// from the threshold in force right now; later threshold changes never
// re-verify past submissions.
func (r *Registry) StageRegister(owner domain.AccountID, fingerprint string, greeneryPct int, carbonValue domain.Amount, location string, now time.Time) (*StagedRegistration, error) {
	if !owner.Valid() {
		return nil, domain.ErrInvalidAccount
	}
	if fingerprint == "" {
		return nil, domain.ErrEmptyFingerprint
	}
	if greeneryPct < 0 || greeneryPct > 100 {
		return nil, domain.ErrInvalidPercentage
	}
	if carbonValue <= 0 {
		return nil, domain.ErrInvalidCarbonValue
	}
	if _, exists := r.byFingerprint[fingerprint]; exists {
		return nil, domain.ErrDuplicateFingerprint
	}

	return &StagedRegistration{
		Submission: domain.Submission{
			ID:               r.seq.Peek(0),
			Owner:            owner,
			ImageFingerprint: fingerprint,
			GreeneryPct:      greeneryPct,
			CarbonValue:      carbonValue,
			Location:         location,
			Verified:         greeneryPct >= r.threshold,
			CreatedAt:        now,
		},
	}, nil
}

// ApplyRegister records the submission and claims its fingerprint forever.
func (r *Registry) ApplyRegister(staged *StagedRegistration) {
	sub := staged.Submission
	r.subs[sub.ID] = &sub
	r.byFingerprint[sub.ImageFingerprint] = sub.ID
	r.seq.Advance(1)
	r.carbonTotal += sub.CarbonValue
	if sub.Verified {
		r.verifiedCount++
	}
}

// StagedTokenization marks a verified submission for minting. The token id
// is filled in by the engine once the ledger has staged the mint.
type StagedTokenization struct {
	SubmissionID uint64
	TokenID      uint64
}

// StageTokenize validates that caller may tokenize the submission. Mint
// staging happens separately on the ledger; the engine wires the resulting
// token id into the staged tokenization before applying either.
func (r *Registry) StageTokenize(submissionID uint64, caller domain.AccountID) (*StagedTokenization, error) {
	sub, ok := r.subs[submissionID]
	if !ok {
		return nil, domain.ErrUnknownSubmission
	}
	if sub.Owner != caller {
		return nil, domain.ErrNotOwner
	}
	if sub.Tokenized {
		return nil, domain.ErrAlreadyTokenized
	}
	if !sub.Verified {
		return nil, domain.ErrNotVerified
	}

	return &StagedTokenization{SubmissionID: submissionID}, nil
}

// ApplyTokenize flips the one-way tokenized flag and pins the token id.
func (r *Registry) ApplyTokenize(staged *StagedTokenization) {
	sub := r.subs[staged.SubmissionID]
	tokenID := staged.TokenID
	sub.Tokenized = true
	sub.TokenID = &tokenID
	r.tokenizedCount++
}

// Get returns a copy of the submission record.
func (r *Registry) Get(submissionID uint64) (domain.Submission, error) {
	sub, ok := r.subs[submissionID]
	if !ok {
		return domain.Submission{}, domain.ErrUnknownSubmission
	}
	return *sub, nil
}

// ListByOwner returns copies of the owner's submissions, ascending by id.
func (r *Registry) ListByOwner(owner domain.AccountID) []domain.Submission {
	out := make([]domain.Submission, 0)
	for id := uint64(1); id <= r.seq.Last(); id++ {
		if sub, ok := r.subs[id]; ok && sub.Owner == owner {
			out = append(out, *sub)
		}
	}
	return out
}

// Stats returns aggregate submission counts and the summed carbon value.
func (r *Registry) Stats() domain.RegistryStats {
	return domain.RegistryStats{
		Total:       len(r.subs),
		Verified:    r.verifiedCount,
		Tokenized:   r.tokenizedCount,
		CarbonTotal: r.carbonTotal,
	}
}

// Threshold returns the current verification threshold percentage.
func (r *Registry) Threshold() int {
	return r.threshold
}

// SetThreshold changes the threshold for future registrations only.
func (r *Registry) SetThreshold(pct int) error {
	if pct < 0 || pct > 100 {
		return domain.ErrInvalidThreshold
	}
	r.threshold = pct
	return nil
}

// StagedOverride is a validated administrative rewrite of a submission's
// score fields.
type StagedOverride struct {
	SubmissionID uint64
	GreeneryPct  int
	CarbonValue  domain.Amount
	Verified     bool
	// BecameVerified is set when the override flips verified from false to
	// true, which emits a submission.verified event.
	BecameVerified bool
}

// StageOverride validates an administrative rewrite. Verified is recomputed
// from the new percentage; tokenized and the token id are never touched,
// even when the new percentage falls below threshold.
func (r *Registry) StageOverride(submissionID uint64, greeneryPct int, carbonValue domain.Amount) (*StagedOverride, error) {
	sub, ok := r.subs[submissionID]
	if !ok {
		return nil, domain.ErrUnknownSubmission
	}
	if greeneryPct < 0 || greeneryPct > 100 {
		return nil, domain.ErrInvalidPercentage
	}
	if carbonValue <= 0 {
		return nil, domain.ErrInvalidCarbonValue
	}

	verified := greeneryPct >= r.threshold
	return &StagedOverride{
		SubmissionID:   submissionID,
		GreeneryPct:    greeneryPct,
		CarbonValue:    carbonValue,
		Verified:       verified,
		BecameVerified: verified && !sub.Verified,
	}, nil
}

// ApplyOverride rewrites the score fields and keeps the counters honest.
func (r *Registry) ApplyOverride(staged *StagedOverride) {
	sub := r.subs[staged.SubmissionID]
	r.carbonTotal += staged.CarbonValue - sub.CarbonValue
	if staged.Verified != sub.Verified {
		if staged.Verified {
			r.verifiedCount++
		} else {
			r.verifiedCount--
		}
	}
	sub.GreeneryPct = staged.GreeneryPct
	sub.CarbonValue = staged.CarbonValue
	sub.Verified = staged.Verified
}

// Restore rebuilds registry state from persisted submissions during
// rehydration. The fingerprint index rows are authoritative: they survive
// even if a submission row were ever rewritten.
func (r *Registry) Restore(subs []domain.Submission, fingerprints map[string]uint64, threshold int) {
	var last uint64
	for i := range subs {
		sub := subs[i]
		r.subs[sub.ID] = &sub
		r.carbonTotal += sub.CarbonValue
		if sub.Verified {
			r.verifiedCount++
		}
		if sub.Tokenized {
			r.tokenizedCount++
		}
		if sub.ID > last {
			last = sub.ID
		}
	}
	for fp, id := range fingerprints {
		r.byFingerprint[fp] = id
	}
	r.seq.Restore(last)
	if threshold >= 0 {
		r.threshold = threshold
	}
}
