package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateChecksumsDryRun(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("service:\n  name: test\n"), 0600); err != nil {
		t.Fatal(err)
	}

	report, err := GenerateChecksums(tmpDir, []string{"config.yaml", ".env"}, true)
	if err != nil {
		t.Fatalf("GenerateChecksums() failed: %v", err)
	}

	if report.Written {
		t.Fatal("report.Written = true, want false in dry-run")
	}

	if len(report.Files) != 2 {
		t.Fatalf("len(report.Files) = %d, want 2", len(report.Files))
	}

	if !report.Files[0].Exists || report.Files[0].Hash == "" {
		t.Fatal("config.yaml should exist with computed hash")
	}
	if report.Files[1].Exists || report.Files[1].Hash != "" {
		t.Fatal(".env should be reported as missing without hash")
	}

	if _, err := os.Stat(filepath.Join(tmpDir, ChecksumFile)); !os.IsNotExist(err) {
		t.Fatal(".checksums should not be written in dry-run mode")
	}
}

func TestGenerateChecksumsWritesManifest(t *testing.T) {
	tmpDir := t.TempDir()

	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("service:\n  name: test\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, ".env"), []byte("PAYKIT_API_KEY=sk\n"), 0600); err != nil {
		t.Fatal(err)
	}

	report, err := GenerateChecksums(tmpDir, []string{"config.yaml", ".env"}, false)
	if err != nil {
		t.Fatalf("GenerateChecksums() failed: %v", err)
	}
	if !report.Written {
		t.Fatal("report.Written = false, want true")
	}

	manifest, err := LoadChecksums(tmpDir)
	if err != nil {
		t.Fatalf("LoadChecksums() failed: %v", err)
	}
	if len(manifest.Hashes) != 2 {
		t.Fatalf("len(manifest.Hashes) = %d, want 2", len(manifest.Hashes))
	}

	if err := VerifyFileHash(filepath.Join(tmpDir, "config.yaml"), manifest.Hashes["config.yaml"]); err != nil {
		t.Fatalf("VerifyFileHash() on untouched file: %v", err)
	}
	if err := os.WriteFile(filepath.Join(tmpDir, "config.yaml"), []byte("service:\n  name: changed\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if err := VerifyFileHash(filepath.Join(tmpDir, "config.yaml"), manifest.Hashes["config.yaml"]); err == nil {
		t.Fatal("VerifyFileHash() should fail after modification")
	}
}

func TestLoadChecksumsMissing(t *testing.T) {
	_, err := LoadChecksums(t.TempDir())
	if !errors.Is(err, ErrNoChecksums) {
		t.Fatalf("err = %v, want ErrNoChecksums", err)
	}
}

func TestLoadChecksumsRejectsUnknownVersion(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, ChecksumFile), []byte("version: 2\nhashes: {}\n"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadChecksums(tmpDir); err == nil {
		t.Fatal("expected error for version 2")
	}
}
