// Package storage persists the enrolled reference profile across restarts.
// The profile is encrypted at rest using NaCl secretbox with a key derived
// from machine identity.
package storage

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/nacl/secretbox"

	"github.com/SBanditaDas/facesentinel/pkg/landmark"
	"github.com/SBanditaDas/facesentinel/pkg/logging"
)

const (
	// NonceSize is the size of the nonce used for encryption
	NonceSize = 24
	// KeySize is the size of the encryption key
	KeySize = 32
)

// Profile is the persisted reference identity. There is at most one at any
// time; saving replaces it wholesale, last write wins.
type Profile struct {
	Vector     landmark.FeatureVector `json:"vector"`
	Samples    int                    `json:"samples"`
	EnrolledAt time.Time              `json:"enrolled_at"`
	UpdatedAt  time.Time              `json:"updated_at"`
}

// ErrNotEnrolled is returned when no profile has been saved.
var ErrNotEnrolled = errors.New("no reference profile enrolled")

// ErrEncryption is returned when encryption/decryption fails.
var ErrEncryption = errors.New("encryption error")

// ProfileStore keeps the single reference profile on disk.
type ProfileStore struct {
	dataDir           string
	encryptionEnabled bool
	encryptionKey     [KeySize]byte
}

// NewProfileStore creates a ProfileStore rooted at dataDir.
func NewProfileStore(dataDir string, encryptionEnabled bool) (*ProfileStore, error) {
	ps := &ProfileStore{
		dataDir:           dataDir,
		encryptionEnabled: encryptionEnabled,
	}

	if encryptionEnabled {
		key, err := deriveKey()
		if err != nil {
			return nil, fmt.Errorf("failed to derive encryption key: %w", err)
		}
		ps.encryptionKey = key
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return ps, nil
}

// deriveKey derives an encryption key from machine-specific information,
// tying the encrypted profile to this machine.
func deriveKey() ([KeySize]byte, error) {
	var key [KeySize]byte

	var identity strings.Builder

	// Machine ID (Linux specific)
	if machineID, err := os.ReadFile("/etc/machine-id"); err == nil {
		identity.Write(machineID)
	}

	if hostname, err := os.Hostname(); err == nil {
		identity.WriteString(hostname)
	}

	identity.WriteString(fmt.Sprintf("%d", os.Getuid()))
	identity.WriteString("facesentinel-v1-salt")

	hash := sha256.Sum256([]byte(identity.String()))
	copy(key[:], hash[:])

	return key, nil
}

func (ps *ProfileStore) profilePath() string {
	if ps.encryptionEnabled {
		return filepath.Join(ps.dataDir, "profile.enc")
	}
	return filepath.Join(ps.dataDir, "profile.json")
}

// Save writes the profile, replacing any existing one.
func (ps *ProfileStore) Save(profile Profile) error {
	data, err := json.MarshalIndent(profile, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal profile: %w", err)
	}

	if ps.encryptionEnabled {
		data, err = ps.encrypt(data)
		if err != nil {
			return fmt.Errorf("failed to encrypt profile: %w", err)
		}
	}

	if err := os.WriteFile(ps.profilePath(), data, 0600); err != nil {
		return fmt.Errorf("failed to write profile: %w", err)
	}

	logging.Debugf("reference profile saved (%d components)", len(profile.Vector))
	return nil
}

// Load reads the stored profile. ErrNotEnrolled when none exists.
func (ps *ProfileStore) Load() (*Profile, error) {
	data, err := os.ReadFile(ps.profilePath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotEnrolled
		}
		return nil, fmt.Errorf("failed to read profile: %w", err)
	}

	if ps.encryptionEnabled {
		data, err = ps.decrypt(data)
		if err != nil {
			return nil, fmt.Errorf("failed to decrypt profile: %w", err)
		}
	}

	var profile Profile
	if err := json.Unmarshal(data, &profile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal profile: %w", err)
	}

	logging.Debug("reference profile loaded")
	return &profile, nil
}

// Delete removes the stored profile.
func (ps *ProfileStore) Delete() error {
	if err := os.Remove(ps.profilePath()); err != nil {
		if os.IsNotExist(err) {
			return ErrNotEnrolled
		}
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	logging.Info("reference profile deleted")
	return nil
}

// Exists reports whether a profile has been enrolled.
func (ps *ProfileStore) Exists() bool {
	_, err := os.Stat(ps.profilePath())
	return err == nil
}

// encrypt encrypts data using NaCl secretbox.
func (ps *ProfileStore) encrypt(plaintext []byte) ([]byte, error) {
	var nonce [NonceSize]byte
	if _, err := io.ReadFull(rand.Reader, nonce[:]); err != nil {
		return nil, err
	}

	return secretbox.Seal(nonce[:], plaintext, &nonce, &ps.encryptionKey), nil
}

// decrypt decrypts data using NaCl secretbox.
func (ps *ProfileStore) decrypt(ciphertext []byte) ([]byte, error) {
	if len(ciphertext) < NonceSize {
		return nil, ErrEncryption
	}

	var nonce [NonceSize]byte
	copy(nonce[:], ciphertext[:NonceSize])

	plaintext, ok := secretbox.Open(nil, ciphertext[NonceSize:], &nonce, &ps.encryptionKey)
	if !ok {
		return nil, ErrEncryption
	}

	return plaintext, nil
}
