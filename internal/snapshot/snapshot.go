// Package snapshot seals resolved parameter values into an encrypted,
// compressed file for offline restore: air-gapped deploys and disaster
// fallback when the parameter store is unreachable.
//
// File layout: an 8-byte magic header, a 16-byte random Argon2 salt, a
// 24-byte random nonce, then the XChaCha20-Poly1305 ciphertext of the
// zstd-compressed JSON payload. The key is derived from a passphrase with
// Argon2id, so a wrong passphrase or any tampering fails authentication.
package snapshot

import (
	"bytes"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// magic identifies a sealed snapshot file, including its format version.
var magic = []byte("PKSNAP1\n")

const saltSize = 16

// Argon2id parameters, per the x/crypto recommendations for key derivation.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	argonKeyLen  = chacha20poly1305.KeySize
)

// Package-level zstd coders; both are safe for concurrent use.
var zstdEncoder, _ = zstd.NewWriter(nil)
var zstdDecoder, _ = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))

// Snapshot is the sealed payload: the resolved values and when they were
// captured.
type Snapshot struct {
	CreatedAt time.Time         `json:"created_at"`
	Values    map[string]string `json:"values"`
}

// Seal captures values into an encrypted snapshot file at path. Parent
// directories are created as needed and the file is synced to stable
// storage before close, with mode 0600.
func Seal(path string, values map[string]string, passphrase string) error {
	if passphrase == "" {
		return fmt.Errorf("snapshot: passphrase must not be empty")
	}

	payload, err := json.Marshal(Snapshot{
		CreatedAt: time.Now().UTC(),
		Values:    values,
	})
	if err != nil {
		return fmt.Errorf("snapshot: encoding payload: %w", err)
	}

	compressed := zstdEncoder.EncodeAll(payload, make([]byte, 0, len(payload)))

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("snapshot: generating salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return fmt.Errorf("snapshot: generating nonce: %w", err)
	}

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return fmt.Errorf("snapshot: initializing cipher: %w", err)
	}
	sealed := aead.Seal(nil, nonce, compressed, nil)

	out := make([]byte, 0, len(magic)+saltSize+len(nonce)+len(sealed))
	out = append(out, magic...)
	out = append(out, salt...)
	out = append(out, nonce...)
	out = append(out, sealed...)

	return writeDurable(path, out)
}

// Open reads and unseals the snapshot at path.
func Open(path string, passphrase string) (*Snapshot, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("snapshot: passphrase must not be empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("snapshot: reading %s: %w", path, err)
	}

	headerLen := len(magic) + saltSize + chacha20poly1305.NonceSizeX
	if len(data) < headerLen {
		return nil, fmt.Errorf("snapshot: %s is truncated", path)
	}
	if !bytes.Equal(data[:len(magic)], magic) {
		return nil, fmt.Errorf("snapshot: %s is not a snapshot file", path)
	}

	salt := data[len(magic) : len(magic)+saltSize]
	nonce := data[len(magic)+saltSize : headerLen]
	sealed := data[headerLen:]

	aead, err := chacha20poly1305.NewX(deriveKey(passphrase, salt))
	if err != nil {
		return nil, fmt.Errorf("snapshot: initializing cipher: %w", err)
	}

	compressed, err := aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: authentication failed (wrong passphrase or corrupted file): %w", err)
	}

	payload, err := zstdDecoder.DecodeAll(compressed, nil)
	if err != nil {
		return nil, fmt.Errorf("snapshot: decompressing payload: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return nil, fmt.Errorf("snapshot: decoding payload: %w", err)
	}
	return &snap, nil
}

func deriveKey(passphrase string, salt []byte) []byte {
	return argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, argonKeyLen)
}

// writeDurable writes data to path with the same discipline target files
// get: parents created, truncate-write, sync before close.
func writeDurable(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("snapshot: creating directory for %s: %w", path, err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("snapshot: opening %s: %w", path, err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: writing %s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		return fmt.Errorf("snapshot: syncing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("snapshot: closing %s: %w", path, err)
	}
	return nil
}
