package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/SBanditaDas/facesentinel/pkg/landmark"
)

func TestNewProfileStore(t *testing.T) {
	tmpDir := t.TempDir()

	tests := []struct {
		name       string
		dataDir    string
		encryption bool
	}{
		{
			name:       "without encryption",
			dataDir:    filepath.Join(tmpDir, "plain"),
			encryption: false,
		},
		{
			name:       "with encryption",
			dataDir:    filepath.Join(tmpDir, "encrypted"),
			encryption: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ps, err := NewProfileStore(tt.dataDir, tt.encryption)
			if err != nil {
				t.Fatalf("NewProfileStore() error = %v", err)
			}
			if ps == nil {
				t.Fatal("NewProfileStore returned nil")
			}

			if _, err := os.Stat(tt.dataDir); os.IsNotExist(err) {
				t.Error("data directory was not created")
			}
		})
	}
}

func TestProfileStore_SaveAndLoad(t *testing.T) {
	ps, err := NewProfileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	profile := testProfile(3)
	if err := ps.Save(profile); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := ps.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(loaded.Vector) != len(profile.Vector) {
		t.Errorf("vector length mismatch: got %d, want %d", len(loaded.Vector), len(profile.Vector))
	}
	for i := range profile.Vector {
		if loaded.Vector[i] != profile.Vector[i] {
			t.Errorf("vector component %d mismatch: got %v, want %v", i, loaded.Vector[i], profile.Vector[i])
		}
	}
	if loaded.Samples != 3 {
		t.Errorf("samples mismatch: got %d, want 3", loaded.Samples)
	}
}

func TestProfileStore_SaveAndLoad_Encrypted(t *testing.T) {
	tmpDir := t.TempDir()
	ps, err := NewProfileStore(tmpDir, true)
	if err != nil {
		t.Fatalf("failed to create encrypted store: %v", err)
	}

	profile := testProfile(2)
	if err := ps.Save(profile); err != nil {
		t.Fatalf("Save (encrypted) failed: %v", err)
	}

	loaded, err := ps.Load()
	if err != nil {
		t.Fatalf("Load (encrypted) failed: %v", err)
	}
	if len(loaded.Vector) != len(profile.Vector) {
		t.Errorf("vector length mismatch after encryption: got %d, want %d",
			len(loaded.Vector), len(profile.Vector))
	}

	// Verify the file on disk is not plaintext JSON
	data, err := os.ReadFile(filepath.Join(tmpDir, "profile.enc"))
	if err != nil {
		t.Fatalf("failed to read encrypted file: %v", err)
	}
	if len(data) > 0 && data[0] == '{' {
		t.Error("file does not appear to be encrypted")
	}
}

func TestProfileStore_LastWriteWins(t *testing.T) {
	ps, err := NewProfileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	first := testProfile(1)
	if err := ps.Save(first); err != nil {
		t.Fatalf("first Save failed: %v", err)
	}

	second := testProfile(5)
	second.Vector[0] = 0.123
	if err := ps.Save(second); err != nil {
		t.Fatalf("second Save failed: %v", err)
	}

	loaded, err := ps.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Samples != 5 {
		t.Errorf("expected the replacement profile, got samples = %d", loaded.Samples)
	}
	if loaded.Vector[0] != 0.123 {
		t.Errorf("expected the replacement vector, got %v", loaded.Vector[0])
	}
}

func TestProfileStore_Load_NotEnrolled(t *testing.T) {
	ps, err := NewProfileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if _, err := ps.Load(); err != ErrNotEnrolled {
		t.Errorf("expected ErrNotEnrolled, got %v", err)
	}
}

func TestProfileStore_Delete(t *testing.T) {
	ps, err := NewProfileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := ps.Save(testProfile(1)); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if !ps.Exists() {
		t.Error("profile should exist after save")
	}

	if err := ps.Delete(); err != nil {
		t.Errorf("Delete failed: %v", err)
	}
	if ps.Exists() {
		t.Error("profile should not exist after delete")
	}
}

func TestProfileStore_Delete_NotEnrolled(t *testing.T) {
	ps, err := NewProfileStore(t.TempDir(), false)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := ps.Delete(); err != ErrNotEnrolled {
		t.Errorf("expected ErrNotEnrolled, got %v", err)
	}
}

func TestEncryptDecrypt(t *testing.T) {
	ps, err := NewProfileStore(t.TempDir(), true)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	plaintext := []byte("This is a test message for encryption")

	ciphertext, err := ps.encrypt(plaintext)
	if err != nil {
		t.Fatalf("encrypt failed: %v", err)
	}
	if string(ciphertext) == string(plaintext) {
		t.Error("ciphertext should differ from plaintext")
	}

	decrypted, err := ps.decrypt(ciphertext)
	if err != nil {
		t.Fatalf("decrypt failed: %v", err)
	}
	if string(decrypted) != string(plaintext) {
		t.Errorf("decrypted text doesn't match: got %s, want %s", decrypted, plaintext)
	}
}

func TestDecrypt_InvalidData(t *testing.T) {
	ps, err := NewProfileStore(t.TempDir(), true)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	// Too short
	if _, err := ps.decrypt([]byte("short")); err != ErrEncryption {
		t.Errorf("expected ErrEncryption for short data, got %v", err)
	}

	// Garbage ciphertext
	if _, err := ps.decrypt(make([]byte, 100)); err != ErrEncryption {
		t.Errorf("expected ErrEncryption for invalid data, got %v", err)
	}
}

func testProfile(samples int) Profile {
	vector := make(landmark.FeatureVector, landmark.NumFeatures)
	for i := range vector {
		vector[i] = float64(i) / 100.0
	}
	vector.Normalize()

	now := time.Now()
	return Profile{
		Vector:     vector,
		Samples:    samples,
		EnrolledAt: now,
		UpdatedAt:  now,
	}
}

func BenchmarkProfileStore_Save(b *testing.B) {
	ps, _ := NewProfileStore(b.TempDir(), false)
	profile := testProfile(5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = ps.Save(profile)
	}
}

func BenchmarkEncryptDecrypt(b *testing.B) {
	ps, _ := NewProfileStore(b.TempDir(), true)
	data := []byte("benchmark encryption data that is reasonably sized")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		encrypted, _ := ps.encrypt(data)
		_, _ = ps.decrypt(encrypted)
	}
}
