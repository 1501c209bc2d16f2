package model

import "fmt"

// BiasTag is the judge's classification of the overall lean of the answers.
type BiasTag string

const (
	BiasLeft       BiasTag = "Left-Leaning"
	BiasRight      BiasTag = "Right-Leaning"
	BiasNeutral    BiasTag = "Neutral/Centrist"
	BiasSubjective BiasTag = "Highly Subjective"
	BiasUnknown    BiasTag = "Unknown"
)

// AgreementRate describes how closely the models agreed with each other.
type AgreementRate string

const (
	AgreementHigh    AgreementRate = "HIGH"
	AgreementMedium  AgreementRate = "MEDIUM"
	AgreementLow     AgreementRate = "LOW"
	AgreementUnknown AgreementRate = "UNKNOWN"
)

// FallbackSummary is the summary carried by the fallback verdict.
const FallbackSummary = "Judge evaluation failed; no verdict could be produced."

// Verdict is the fixed-shape output of the judge model.
type Verdict struct {
	Summary           string        `json:"summary"`
	SubjectivityScore int           `json:"subjectivity_score"`
	BiasTag           BiasTag       `json:"bias_tag"`
	AgreementRate     AgreementRate `json:"agreement_rate"`
	Confidence        int           `json:"confidence"`
}

// FallbackVerdict returns the verdict used whenever the judge call or its
// output cannot be trusted.
func FallbackVerdict() Verdict {
	return Verdict{
		Summary:           FallbackSummary,
		SubjectivityScore: 0,
		BiasTag:           BiasUnknown,
		AgreementRate:     AgreementUnknown,
		Confidence:        0,
	}
}

// IsFallback reports whether v is the fallback verdict.
func (v Verdict) IsFallback() bool {
	return v == FallbackVerdict()
}

// Valid reports whether t is one of the closed set of bias tags.
func (t BiasTag) Valid() bool {
	switch t {
	case BiasLeft, BiasRight, BiasNeutral, BiasSubjective, BiasUnknown:
		return true
	}
	return false
}

// Valid reports whether r is one of the closed set of agreement rates.
func (r AgreementRate) Valid() bool {
	switch r {
	case AgreementHigh, AgreementMedium, AgreementLow, AgreementUnknown:
		return true
	}
	return false
}

// Validate checks enum membership and score ranges.
func (v Verdict) Validate() error {
	if !v.BiasTag.Valid() {
		return fmt.Errorf("bias_tag %q is not a known tag", v.BiasTag)
	}
	if !v.AgreementRate.Valid() {
		return fmt.Errorf("agreement_rate %q is not a known rate", v.AgreementRate)
	}
	if v.SubjectivityScore < 0 || v.SubjectivityScore > 100 {
		return fmt.Errorf("subjectivity_score %d out of range 0-100", v.SubjectivityScore)
	}
	if v.Confidence < 0 || v.Confidence > 100 {
		return fmt.Errorf("confidence %d out of range 0-100", v.Confidence)
	}
	return nil
}
