package main

import (
	"crypto/sha256"
	"fmt"
	"testing"
)

func TestParseMigrationFilename(t *testing.T) {
	tests := []struct {
		filename string
		valid    bool
		version  int
		name     string
	}{
		{"0001_create_batches.sql", true, 1, "create_batches"},
		{"0003_create_features.sql", true, 3, "create_features"},
		{"001_invalid.sql", false, 0, ""},       // wrong number format
		{"0001_test", false, 0, ""},             // missing .sql
		{"0001.sql", false, 0, ""},              // missing name
		{"invalid_0001_test.sql", false, 0, ""}, // wrong order
		{"README.md", false, 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.filename, func(t *testing.T) {
			version, name, ok := parseMigrationFilename(tt.filename)
			if ok != tt.valid {
				t.Fatalf("parseMigrationFilename(%q) ok = %v, want %v", tt.filename, ok, tt.valid)
			}
			if !tt.valid {
				return
			}
			if version != tt.version || name != tt.name {
				t.Errorf("parseMigrationFilename(%q) = (%d, %q), want (%d, %q)",
					tt.filename, version, name, tt.version, tt.name)
			}
		})
	}
}

func TestMigrationChecksumConsistency(t *testing.T) {
	content1 := []byte("CREATE TABLE test (id INT64);")
	content2 := []byte("CREATE TABLE test (id INT64);")
	content3 := []byte("CREATE TABLE different (id INT64);")

	sum1 := fmt.Sprintf("%x", sha256.Sum256(content1))
	sum2 := fmt.Sprintf("%x", sha256.Sum256(content2))
	sum3 := fmt.Sprintf("%x", sha256.Sum256(content3))

	if sum1 != sum2 {
		t.Error("identical content should produce identical checksums")
	}
	if sum1 == sum3 {
		t.Error("different content should produce different checksums")
	}
}
