package seal

// Purpose identifies what a sealed value is used for. It is bound into the
// ciphertext so a value sealed for one purpose cannot be opened as another.
type Purpose string

const (
	// PurposeTOTPSeed marks a guardian's TOTP seed.
	PurposeTOTPSeed Purpose = "totp_seed"
	// PurposeContextualSecret marks a transaction's contextual secret.
	PurposeContextualSecret Purpose = "contextual_secret"
)

// Scope binds a sealed value to its owner and purpose.
type Scope struct {
	// Subject is the guardian id or transaction id owning the value.
	Subject string
	// Purpose is what the value is used for.
	Purpose Purpose
}
