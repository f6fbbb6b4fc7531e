package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"

	"igdm/internal/errs"
)

// maxCredentialLen is the OAEP block limit for a 2048-bit modulus with
// SHA-256: k - 2*hLen - 2.
const maxCredentialLen = keySize/8 - 2*sha256.Size - 2

// EncryptCredential encrypts plaintext under pub with RSA-OAEP-SHA256 and
// returns base64 ciphertext. Used by the client side and by tests.
func EncryptCredential(plaintext string, pub *rsa.PublicKey) (string, error) {
	if plaintext == "" {
		return "", errs.New(errs.KindEncryption, "credential is empty")
	}
	if len(plaintext) > maxCredentialLen {
		return "", errs.Newf(errs.KindEncryption, "credential exceeds %d bytes", maxCredentialLen)
	}

	ct, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, []byte(plaintext), nil)
	if err != nil {
		return "", errs.Wrap(errs.KindEncryption, "credential encryption failed", err)
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// DecryptCredential reverses EncryptCredential using the server's private
// key. Every failure mode returns the same error so callers (and attackers)
// cannot distinguish bad padding from a wrong key or mangled base64.
func DecryptCredential(encoded string, priv *rsa.PrivateKey) (string, error) {
	failed := errs.New(errs.KindDecryption, "failed to decrypt credential")

	ct, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", failed
	}
	pt, err := rsa.DecryptOAEP(sha256.New(), rand.Reader, priv, ct, nil)
	if err != nil {
		return "", failed
	}
	return string(pt), nil
}

// ParsePublicKeyPEM decodes a PKIX PEM public key as served by
// /auth/public-key.
func ParsePublicKeyPEM(pemText string) (*rsa.PublicKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, errs.New(errs.KindEncryption, "invalid public key PEM")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, errs.Wrap(errs.KindEncryption, "invalid public key", err)
	}
	pub, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errs.New(errs.KindEncryption, "public key is not RSA")
	}
	return pub, nil
}
