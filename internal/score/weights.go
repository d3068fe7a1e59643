package score

// Weights is the deduction table: how many points each finding removes
// from the perfect score of 100. Deductions from different checks stack;
// the stacking is intentional policy, not double counting — each row
// encodes distinct evidence.
//
// Design decision: The table is a value passed into the Scorer rather
// than package constants so tests and deployments can substitute a
// fixture policy without touching shared state.
type Weights struct {
	// Domain age brackets: younger domains deduct more.
	AgeUnderWeek    int
	AgeUnderMonth   int
	AgeUnderQuarter int

	// Certificate posture. Absent and invalid are disjoint by
	// construction: an absent certificate cannot also be invalid.
	CertAbsent       int
	CertInvalid      int
	CertExpiringSoon int

	// Cipher strength buckets.
	CipherWeak     int
	CipherModerate int

	// Legacy TLS protocol versions (anything below 1.2).
	LegacyTLSVersion int

	// Reverse DNS present but not matching the scanned domain.
	ReverseDNSMismatch int

	// Suspicious ports exposed.
	SuspiciousPorts int

	// IP reputation: abuse confidence brackets and report-count brackets.
	AbuseScoreHigh   int
	AbuseScoreMedium int
	AbuseScoreLow    int
	ReportsMany      int
	ReportsSome      int
	ReportsFew       int

	// Sandbox telemetry: suspicious request brackets, third-party domain
	// brackets, and the incomplete-capture penalty.
	SandboxManySuspicious int
	SandboxSomeSuspicious int
	SandboxAnySuspicious  int
	ThirdPartyMany        int
	ThirdPartySome        int
	SandboxIncomplete     int

	// Security header grades.
	HeadersGradeF int
	HeadersGradeD int
	HeadersGradeC int
	HeadersGradeB int

	// Cookie security brackets, applied only when issues were found.
	CookiesMostlyInsecure int
	CookiesPartlySecure   int

	// Sensitive file exposure, per file by severity.
	FileCritical int
	FileHigh     int
	FileOther    int

	// Version disclosure brackets.
	VersionHigh   int
	VersionMedium int
	VersionOther  int

	// Administrative endpoint exposure, per endpoint by kind.
	DebugEndpoint int
	AdminEndpoint int
}

// DefaultWeights returns the standard deduction table.
func DefaultWeights() Weights {
	return Weights{
		AgeUnderWeek:    40,
		AgeUnderMonth:   20,
		AgeUnderQuarter: 10,

		CertAbsent:       20,
		CertInvalid:      30,
		CertExpiringSoon: 15,

		CipherWeak:     20,
		CipherModerate: 5,

		LegacyTLSVersion: 15,

		ReverseDNSMismatch: 5,

		SuspiciousPorts: 15,

		AbuseScoreHigh:   40,
		AbuseScoreMedium: 25,
		AbuseScoreLow:    10,
		ReportsMany:      15,
		ReportsSome:      10,
		ReportsFew:       5,

		SandboxManySuspicious: 30,
		SandboxSomeSuspicious: 20,
		SandboxAnySuspicious:  10,
		ThirdPartyMany:        10,
		ThirdPartySome:        5,
		SandboxIncomplete:     5,

		HeadersGradeF: 20,
		HeadersGradeD: 15,
		HeadersGradeC: 10,
		HeadersGradeB: 5,

		CookiesMostlyInsecure: 10,
		CookiesPartlySecure:   5,

		FileCritical: 25,
		FileHigh:     15,
		FileOther:    5,

		VersionHigh:   15,
		VersionMedium: 8,
		VersionOther:  3,

		DebugEndpoint: 10,
		AdminEndpoint: 3,
	}
}
