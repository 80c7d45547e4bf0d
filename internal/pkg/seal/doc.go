// Package seal encrypts guardian TOTP seeds and transaction contextual
// secrets at rest with AES-256-GCM. Every ciphertext is bound to the subject
// and purpose it was sealed for.
package seal
