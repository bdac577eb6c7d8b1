// Package auth implements the challenge/secret authentication handshake.
//
// The server never stores the plain password. At startup it derives a
// secret from the configured password and a random salt; the Hello
// message hands the client the salt plus a per-connection challenge
// nonce. The client proves knowledge of the password by sending
// base64(sha256(secret + challenge)) in its Identify payload.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
)

// nonceLength is the byte length of generated salts and challenges.
const nonceLength = 32

// generateNonce returns base64 of cryptographically random bytes.
func generateNonce() string {
	b := make([]byte, nonceLength)
	if _, err := rand.Read(b); err != nil {
		// Weak nonces would let an attacker replay authentication
		// proofs, so entropy failure is fatal.
		panic(fmt.Sprintf("auth: crypto/rand failed: %v", err))
	}
	return base64.StdEncoding.EncodeToString(b)
}

// GenerateSalt returns a fresh random salt for secret derivation.
func GenerateSalt() string {
	return generateNonce()
}

// GenerateChallenge returns a fresh per-connection challenge nonce.
func GenerateChallenge() string {
	return generateNonce()
}

// GenerateSecret derives the stored secret from a password and salt:
// base64(sha256(password + salt)).
func GenerateSecret(password, salt string) string {
	sum := sha256.Sum256([]byte(password + salt))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// GenerateProof computes the authentication string a client must send
// for the given secret and challenge: base64(sha256(secret + challenge)).
func GenerateProof(secret, challenge string) string {
	sum := sha256.Sum256([]byte(secret + challenge))
	return base64.StdEncoding.EncodeToString(sum[:])
}

// CheckAuthenticationString verifies a client-supplied proof against
// the server secret and the connection's challenge. Comparison is
// constant time.
func CheckAuthenticationString(secret, challenge, proof string) bool {
	expected := GenerateProof(secret, challenge)
	return subtle.ConstantTimeCompare([]byte(expected), []byte(proof)) == 1
}
