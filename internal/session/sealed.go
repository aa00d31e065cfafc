package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"io"
	"log"
	"strings"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

var errUnseal = errors.New("cannot unseal value")

// SealedKV encrypts values with secretbox before handing them to the wrapped
// KV. Plaintext values written before sealing was enabled are still readable
// and get sealed on the next Set.
type SealedKV struct {
	next KV
	key  [32]byte
}

func NewSealedKV(next KV, secret string) *SealedKV {
	s := &SealedKV{next: next}
	k := argon2.IDKey([]byte(secret), []byte("mindengage-learner/session"), 1, 19*1024, 1, 32)
	copy(s.key[:], k)
	return s
}

// Get returns ErrNotFound for values sealed under a different secret, so a
// rotated SESSION_KEY just means signing in again.
func (s *SealedKV) Get(ctx context.Context, key string) (string, error) {
	v, err := s.next.Get(ctx, key)
	if err != nil {
		return "", err
	}
	if !strings.HasPrefix(v, sealedPrefix) {
		return v, nil
	}
	plain, err := s.open(strings.TrimPrefix(v, sealedPrefix))
	if err != nil {
		log.Printf("session: %s: %v", key, err)
		return "", ErrNotFound
	}
	return plain, nil
}

func (s *SealedKV) Set(ctx context.Context, key, value string) error {
	var nonce [24]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return err
	}
	box := secretbox.Seal(nonce[:], []byte(value), &nonce, &s.key)
	return s.next.Set(ctx, key, sealedPrefix+base64.RawStdEncoding.EncodeToString(box))
}

func (s *SealedKV) Delete(ctx context.Context, key string) error {
	return s.next.Delete(ctx, key)
}

func (s *SealedKV) open(enc string) (string, error) {
	raw, err := base64.RawStdEncoding.DecodeString(enc)
	if err != nil || len(raw) < 24+secretbox.Overhead {
		return "", errUnseal
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	out, ok := secretbox.Open(nil, raw[24:], &nonce, &s.key)
	if !ok {
		return "", errUnseal
	}
	return string(out), nil
}
