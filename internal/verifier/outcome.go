// Package verifier talks to the remote transfer-verification service
// over mutually trusted TLS and reports its verdicts as plain values.
package verifier

// Status is the verdict of a single verification call.
type Status string

const (
	// StatusVerified means the verifier confirmed the on-chain transfer
	// matches the claim.
	StatusVerified Status = "verified"

	// StatusRejected means the verifier examined the claim and found it
	// does not hold up. Whether a retry can succeed depends on the
	// outcome's Permanent flag: a bad signature never will, a
	// not-yet-mined transaction might.
	StatusRejected Status = "rejected"

	// StatusUnavailable means no verdict could be obtained. The claim
	// stays pending and is retried on a later run.
	StatusUnavailable Status = "unavailable"
)

// Outcome is the result of one verification call. It is always a value,
// never an error: a transport failure is an unavailable outcome, not an
// exceptional condition.
type Outcome struct {
	Status      Status
	Explanation string

	// Permanent is meaningful only for rejections. When false the
	// claim stays pending and is re-checked on a later run.
	Permanent bool
}

func Verified(explanation string) Outcome {
	return Outcome{Status: StatusVerified, Explanation: explanation}
}

func Rejected(explanation string, permanent bool) Outcome {
	return Outcome{Status: StatusRejected, Explanation: explanation, Permanent: permanent}
}

func Unavailable(explanation string) Outcome {
	return Outcome{Status: StatusUnavailable, Explanation: explanation}
}
