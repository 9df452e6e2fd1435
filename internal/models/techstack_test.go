package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeTechStack(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want TechStack
	}{
		{"list", []string{"Go", "Postgres"}, TechStack{"Go", "Postgres"}},
		{"delimited", []string{"Go, Postgres ,Redis"}, TechStack{"Go", "Postgres", "Redis"}},
		{"duplicates keep first spelling", []string{"Go", "go", "GO,Rust"}, TechStack{"Go", "Rust"}},
		{"blanks dropped", []string{" ", ",,", "Go"}, TechStack{"Go"}},
		{"empty", nil, TechStack{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeTechStack(tt.in...))
		})
	}
}

func TestTechStackUnmarshalAcceptsBothShapes(t *testing.T) {
	var fromList, fromString TechStack
	require.NoError(t, json.Unmarshal([]byte(`["react", " node "]`), &fromList))
	require.NoError(t, json.Unmarshal([]byte(`"react, node"`), &fromString))

	assert.Equal(t, TechStack{"react", "node"}, fromList)
	assert.Equal(t, fromList, fromString)

	var bad TechStack
	assert.Error(t, json.Unmarshal([]byte(`42`), &bad))
}

func TestTechStackMarshalNeverNull(t *testing.T) {
	b, err := json.Marshal(Project{Title: "x"})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"techStack":[]`)
}

func TestDiscussionStatusValid(t *testing.T) {
	for _, s := range []DiscussionStatus{StatusActive, StatusDone, StatusRejected} {
		assert.True(t, s.Valid(), s)
	}
	for _, s := range []DiscussionStatus{"", "closed", "ACTIVE"} {
		assert.False(t, s.Valid(), s)
	}
}

func TestUserPasswordNeverSerialized(t *testing.T) {
	u := &User{ID: 1, Username: "alice", Password: "deadbeef.cafe"}
	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.NotContains(t, string(b), "deadbeef")
	assert.NotContains(t, string(b), "password")
	assert.Empty(t, u.Sanitized().Password)
	assert.Equal(t, "deadbeef.cafe", u.Password, "Sanitized must not modify the receiver")
}
