package entity

// Reason explains a rejected validation. It is internal and must never be
// shown to the caller-facing layer.
type Reason int8

const (
	// ReasonNone is the reason of an accepted outcome.
	ReasonNone Reason = 0

	// ReasonChallengeNotFound mean the challenge never existed, already
	// expired out of the store or belongs to another guardian.
	ReasonChallengeNotFound Reason = 1

	// ReasonExpired mean the challenge is past its expiry.
	ReasonExpired Reason = 2

	// ReasonAlreadyConsumed mean the challenge was already accepted once.
	ReasonAlreadyConsumed Reason = 3

	// ReasonAttemptsExhausted mean the attempt ceiling was passed.
	ReasonAttemptsExhausted Reason = 4

	// ReasonInvalidResponse mean no expected response matched.
	ReasonInvalidResponse Reason = 5

	// ReasonSecretNotFound mean the provider knows no seed for the guardian
	// or no contextual secret for the transaction.
	ReasonSecretNotFound Reason = 6
)

func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "none"
	case ReasonChallengeNotFound:
		return "challenge_not_found"
	case ReasonExpired:
		return "expired"
	case ReasonAlreadyConsumed:
		return "already_consumed"
	case ReasonAttemptsExhausted:
		return "attempts_exhausted"
	case ReasonInvalidResponse:
		return "invalid_response"
	case ReasonSecretNotFound:
		return "secret_not_found"
	default:
		return "unknown"
	}
}

// Outcome is the result of validating a response.
type Outcome struct {
	Accepted bool
	Reason   Reason
	// Attempt is the post-increment attempt count, zero when the attempt
	// counter was never reached.
	Attempt int
}

// Accepted returns a successful outcome.
func Accepted(attempt int) *Outcome {
	return &Outcome{Accepted: true, Reason: ReasonNone, Attempt: attempt}
}

// Rejected returns a failed outcome.
func Rejected(reason Reason, attempt int) *Outcome {
	return &Outcome{Reason: reason, Attempt: attempt}
}
