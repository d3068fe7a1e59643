package model

// RiskLevel represents the severity bucket of a classified request.
// It is derived from the numeric risk score via fixed thresholds and is
// never set independently of the score.
//
// Design decision: We use iota-based constants rather than string constants
// for efficiency in comparisons and sorting. The String() method provides
// human-readable output when needed.
type RiskLevel int

const (
	// RiskLow indicates a request with little or no negative evidence.
	RiskLow RiskLevel = iota

	// RiskMedium indicates a request with some suspicious traits that
	// warrant attention but are common in benign traffic.
	RiskMedium

	// RiskHigh indicates a request with strong negative evidence such as
	// a direct-IP host or a malicious URL pattern.
	RiskHigh

	// RiskCritical indicates a request that almost certainly represents
	// an attack or abuse vector, such as a known cryptominer domain.
	RiskCritical
)

// Risk score thresholds for deriving a RiskLevel.
// A classification with score >= CriticalThreshold is critical, and so on
// down the table. Scores below MediumThreshold are low risk.
const (
	// CriticalThreshold is the minimum risk score for RiskCritical.
	CriticalThreshold = 50

	// HighThreshold is the minimum risk score for RiskHigh.
	HighThreshold = 30

	// MediumThreshold is the minimum risk score for RiskMedium.
	// This is also the threshold at which a request is flagged suspicious.
	MediumThreshold = 15
)

// RiskLevelFor maps a numeric risk score to its RiskLevel bucket.
// The mapping is a pure function of the score; callers must not override it.
func RiskLevelFor(score int) RiskLevel {
	switch {
	case score >= CriticalThreshold:
		return RiskCritical
	case score >= HighThreshold:
		return RiskHigh
	case score >= MediumThreshold:
		return RiskMedium
	default:
		return RiskLow
	}
}

// String returns a human-readable representation of the risk level.
func (r RiskLevel) String() string {
	switch r {
	case RiskLow:
		return "LOW"
	case RiskMedium:
		return "MEDIUM"
	case RiskHigh:
		return "HIGH"
	case RiskCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes the risk level as its string form so reports
// remain readable without a lookup table.
func (r RiskLevel) MarshalJSON() ([]byte, error) {
	return []byte(`"` + r.String() + `"`), nil
}

// OverallRisk represents the aggregated severity of a whole request set.
// Unlike RiskLevel it includes a Safe state for the empty case: a page
// that issued no suspicious requests at all.
type OverallRisk int

const (
	// OverallSafe means no suspicious requests were observed.
	OverallSafe OverallRisk = iota

	// OverallLow is the aggregate when the worst suspicious request is low risk.
	OverallLow

	// OverallMedium is the aggregate when the worst suspicious request is medium risk.
	OverallMedium

	// OverallHigh is the aggregate when the worst suspicious request is high risk.
	OverallHigh

	// OverallCritical is the aggregate when any suspicious request is critical.
	OverallCritical
)

// OverallRiskFor lifts a per-request RiskLevel into the aggregate scale.
func OverallRiskFor(level RiskLevel) OverallRisk {
	switch level {
	case RiskLow:
		return OverallLow
	case RiskMedium:
		return OverallMedium
	case RiskHigh:
		return OverallHigh
	case RiskCritical:
		return OverallCritical
	default:
		return OverallSafe
	}
}

// String returns a human-readable representation of the overall risk.
func (o OverallRisk) String() string {
	switch o {
	case OverallSafe:
		return "SAFE"
	case OverallLow:
		return "LOW"
	case OverallMedium:
		return "MEDIUM"
	case OverallHigh:
		return "HIGH"
	case OverallCritical:
		return "CRITICAL"
	default:
		return "UNKNOWN"
	}
}

// MarshalJSON serializes the overall risk as its string form.
func (o OverallRisk) MarshalJSON() ([]byte, error) {
	return []byte(`"` + o.String() + `"`), nil
}
