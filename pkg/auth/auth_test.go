package auth

import (
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestGenerateSecretIsDocumentedDerivation(t *testing.T) {
	password := "supersecretpassword"
	salt := "pepper"

	sum := sha256.Sum256([]byte(password + salt))
	want := base64.StdEncoding.EncodeToString(sum[:])

	if got := GenerateSecret(password, salt); got != want {
		t.Errorf("GenerateSecret() = %q, want %q", got, want)
	}
}

func TestCheckAuthenticationString(t *testing.T) {
	secret := GenerateSecret("hunter2", GenerateSalt())
	challenge := GenerateChallenge()

	tests := []struct {
		name  string
		proof string
		want  bool
	}{
		{
			name:  "correct proof",
			proof: GenerateProof(secret, challenge),
			want:  true,
		},
		{
			name:  "empty proof",
			proof: "",
			want:  false,
		},
		{
			name:  "proof for wrong challenge",
			proof: GenerateProof(secret, GenerateChallenge()),
			want:  false,
		},
		{
			name:  "proof built from password instead of secret",
			proof: GenerateProof("hunter2", challenge),
			want:  false,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := CheckAuthenticationString(secret, challenge, tc.proof); got != tc.want {
				t.Errorf("CheckAuthenticationString() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestNoncesAreUnique(t *testing.T) {
	seen := make(map[string]struct{})
	for i := 0; i < 64; i++ {
		nonce := GenerateChallenge()
		if _, dup := seen[nonce]; dup {
			t.Fatalf("duplicate nonce generated: %q", nonce)
		}
		seen[nonce] = struct{}{}
	}
}
