package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCleanRemotePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/", "/"},
		{"docs", "/docs"},
		{"/docs/", "/docs"},
		{"docs/reports/q1", "/docs/reports/q1"},
		{"//docs//", "/docs"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanRemotePath(tt.in), "input %q", tt.in)
	}
}

func TestRootCmd_HasSubcommands(t *testing.T) {
	cmd := newRootCmd()

	expected := []string{"login", "logout", "whoami", "df", "ls", "get", "put", "rm", "mv", "mkdir"}
	for _, name := range expected {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true

				break
			}
		}

		assert.True(t, found, "missing subcommand %s", name)
	}
}
