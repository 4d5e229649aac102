package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStoredName(t *testing.T) {
	assert.Equal(t, "123456_report.pdf", StoredName("123456", "report.pdf"))
	assert.Equal(t, "654321_1700000000_notes.txt", StampedName("654321", 1700000000, "notes.txt"))
}

func TestMatchesPattern(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		matches bool
	}{
		{"plain upload", "123456_report.pdf", true},
		{"room upload", "123456_1700000000_notes.txt", true},
		{"bare code with separator", "123456_", true},
		{"letters in code", "12a456_x.txt", false},
		{"short prefix", "12345_x.txt", false},
		{"missing separator", "123456x.txt", false},
		{"unrelated file", "stray.tmp", false},
		{"empty", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.matches, MatchesPattern(tt.input))
		})
	}
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, "123456", CodeOf("123456_report.pdf"))
	assert.Equal(t, "", CodeOf("stray.tmp"))
}
