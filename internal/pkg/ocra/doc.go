// Package ocra computes challenge responses in the style of the OATH
// Challenge-Response Algorithm (RFC 6287).
//
// Suite: OCRA-1:HOTP-SHA256-8:QH64-PSHA256
//
//	K         = HKDF-SHA256(ikm = contextual secret, salt = "", info = suite), 32 bytes
//	Q         = 32-byte challenge nonce, right-padded with zeros to 128 bytes
//	P         = SHA-256(ASCII TOTP code)
//	DataInput = suite || 0x00 || Q || P
//	response  = Truncate(HMAC-SHA256(K, DataInput)) mod 10^8, zero padded to 8 digits
//
// Truncate is the dynamic truncation of RFC 4226 section 5.3. A client holding
// the contextual secret, the nonce and the guardian's current TOTP code
// computes the same value with Compute.
package ocra
