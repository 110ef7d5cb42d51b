package retrieval

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettled(t *testing.T) {
	const stem = "467410-2025-11"
	tests := []struct {
		name  string
		files []string
		want  bool
	}{
		{name: "finished download", files: []string{stem + ".csv"}, want: true},
		{name: "own partial still writing", files: []string{stem + ".csv", stem + " (1).csv.crdownload"}, want: false},
		{name: "other station partial", files: []string{stem + ".csv", "C0X000-2025-10.csv.crdownload"}, want: true},
		{name: "nothing yet", files: []string{"C0X000-2025-10.csv.crdownload"}, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for _, f := range tt.files {
				require.NoError(t, os.WriteFile(filepath.Join(dir, f), []byte("x"), 0o644))
			}
			r := &WeatherRetriever{dir: dir}
			assert.Equal(t, tt.want, r.settled(stem, map[string]time.Time{}))
		})
	}
}

func TestSettledIgnoresUnchangedCandidate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "467410-2025-11.csv")
	require.NoError(t, os.WriteFile(path, []byte("old"), 0o644))
	before, err := snapshot(dir, "467410-2025-11")
	require.NoError(t, err)

	r := &WeatherRetriever{dir: dir}
	assert.False(t, r.settled("467410-2025-11", before))

	later := time.Now().Add(time.Minute)
	require.NoError(t, os.Chtimes(path, later, later))
	assert.True(t, r.settled("467410-2025-11", before))
}
