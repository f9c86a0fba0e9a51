package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidatePassword(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{"Valid", "correct-horse", false},
		{"Exactly Min Length", "abcdefgh", false},
		{"Exactly Max Length", strings.Repeat("p", 72), false},
		{"Too Short", "short", true},
		{"Too Long", strings.Repeat("p", 73), true},
		{"Blank", "            ", true},
		{"Unicode Characters", "Ångström-pass", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateHandle(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		handle  string
		wantErr bool
	}{
		{"Valid", "alice", false},
		{"With Underscore And Hyphen", "a_b-c", false},
		{"Exactly Min Length", "abc", false},
		{"Exactly Max Length", strings.Repeat("a", 30), false},
		{"Too Short", "ab", true},
		{"Too Long", strings.Repeat("a", 31), true},
		{"Space", "al ice", true},
		{"Symbol", "al@ice", true},
		{"Leading Underscore", "_alice", true},
		{"Trailing Hyphen", "alice-", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHandle(tt.handle)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateBody(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateBody("body", "hello"))
	assert.NoError(t, ValidateBody("body", strings.Repeat("é", MaxBodyLength)))

	err := ValidateBody("body", "  \n\t ")
	assert.EqualError(t, err, "body is required")

	err = ValidateBody("comment", strings.Repeat("x", MaxBodyLength+1))
	assert.ErrorContains(t, err, "comment must not exceed")
}
