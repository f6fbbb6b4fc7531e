// Package crypto owns the credential-transport key pair and the OAEP cipher
// that protects passwords on their way to the server. It is deliberately
// narrow: nothing else in the process touches the private key.
package crypto

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"igdm/internal/errs"
	"igdm/internal/store"
)

const (
	keySize = 2048

	privateKeyFile = "private.pem"
	publicKeyFile  = "public.pem"
)

// KeyPairStore generates, persists, and serves the server's RSA key pair.
// The private key never leaves this package.
type KeyPairStore struct {
	dir string

	mu  sync.Mutex
	key *rsa.PrivateKey
}

// NewKeyPairStore stores key material under dir.
func NewKeyPairStore(dir string) *KeyPairStore {
	return &KeyPairStore{dir: dir}
}

// Ensure loads the persisted key pair, generating and persisting a fresh one
// if none exists or the stored material is corrupt. Idempotent.
func (s *KeyPairStore) Ensure() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.key != nil {
		return nil
	}

	key, err := s.load()
	if err == nil {
		s.key = key
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) && !errors.Is(err, errCorruptKey) {
		// Unreadable for reasons we cannot fix by regenerating.
		return errs.Wrap(errs.KindKeyStorage, "key pair unreadable", err)
	}

	key, err = rsa.GenerateKey(rand.Reader, keySize)
	if err != nil {
		return errs.Wrap(errs.KindKeyStorage, "key generation failed", err)
	}
	if err := s.persist(key); err != nil {
		return errs.Wrap(errs.KindKeyStorage, "key pair not persisted", err)
	}
	s.key = key
	return nil
}

// PublicPEM returns the public key in PKIX PEM form for clients to encrypt
// against.
func (s *KeyPairStore) PublicPEM() (string, error) {
	if err := s.Ensure(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	der, err := x509.MarshalPKIXPublicKey(&s.key.PublicKey)
	if err != nil {
		return "", errs.Wrap(errs.KindKeyStorage, "public key encoding failed", err)
	}
	return string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})), nil
}

// Private returns the private key for decryption. Callers must not persist
// or transmit it.
func (s *KeyPairStore) Private() (*rsa.PrivateKey, error) {
	if err := s.Ensure(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key, nil
}

var errCorruptKey = errors.New("corrupt key material")

func (s *KeyPairStore) load() (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(filepath.Join(s.dir, privateKeyFile))
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errCorruptKey
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, errCorruptKey
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errCorruptKey
	}
	return key, nil
}

func (s *KeyPairStore) persist(key *rsa.PrivateKey) error {
	privDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return err
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	if err := store.WriteFile(filepath.Join(s.dir, privateKeyFile), privPEM, 0o600); err != nil {
		return err
	}

	pubDER, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	if err != nil {
		return err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})
	return store.WriteFile(filepath.Join(s.dir, publicKeyFile), pubPEM, 0o600)
}
