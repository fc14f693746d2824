package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatSize(t *testing.T) {
	tests := []struct {
		bytes int64
		want  string
	}{
		{0, "0 B"},
		{512, "512 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{5 * 1024 * 1024, "5.0 MB"},
		{3 * 1024 * 1024 * 1024, "3.0 GB"},
		{2 * 1024 * 1024 * 1024 * 1024, "2.0 TB"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatSize(tt.bytes))
	}
}

func TestFormatTime(t *testing.T) {
	now := time.Now()

	// Same year: no year in output.
	sameYear := formatTime(now)
	assert.NotContains(t, sameYear, now.Format("2006"))

	// Different year: year shown.
	old := time.Date(2001, time.March, 5, 10, 0, 0, 0, time.UTC)
	assert.Contains(t, formatTime(old), "2001")
}

func TestPrintTable_NonTerminal(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "out"))
	require.NoError(t, err)
	defer f.Close()

	printTable(f, []string{"NAME", "SIZE"}, [][]string{
		{"a.txt", "1.0 KB"},
		{"b/", "-"},
	})

	data, err := os.ReadFile(f.Name())
	require.NoError(t, err)

	// A regular file is not a terminal: tab-separated, no header row.
	assert.Equal(t, "a.txt\t1.0 KB\nb/\t-\n", string(data))
}
