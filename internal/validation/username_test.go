package validation

import (
	"testing"

	"github.com/qkfdcom/lcqk/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestValidateUsername(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"ascii", "alice", true},
		{"mixed with cjk", "user中", false},
		{"empty string", "", true},
		{"lower bound", "一", false},
		{"upper bound", "龥", false},
		{"just past upper bound", "龦", true},
		{"just before lower bound", "䷿", true},
		{"hiragana", "ひらがな", true},
		{"hangul", "한국어", true},
		{"digits and underscore", "user_123", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ValidateUsername(tt.input))
			assert.Equal(t, !tt.expected, ContainsCJK(tt.input))
		})
	}
}

func TestIsValidUserID(t *testing.T) {
	assert.True(t, IsValidUserID("alice"))
	assert.False(t, IsValidUserID(""))
	assert.False(t, IsValidUserID("   "))
	assert.False(t, IsValidUserID("bob中"))
}

func TestCheckTier(t *testing.T) {
	entries := []domain.ListEntry{
		{UserID: "alice", Tag: "ok"},
		{UserID: "用户", Tag: "bad"},
		{UserID: "", Tag: "blank is fine on read"},
		{UserID: "x中y", Tag: "bad"},
	}

	assert.Equal(t, []domain.ListEntry{entries[1], entries[3]}, CheckTier(entries))
	assert.Equal(t, entries[1:], CheckInput(entries))
	assert.Empty(t, CheckTier(entries[:1]))
}
