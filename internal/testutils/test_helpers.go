package testutils

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTempFile writes content to name inside a fresh temp dir.
func CreateTempFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

// CreateTempDir creates a temp dir populated with files. Keys may contain
// slashes to create subdirectories.
func CreateTempDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return dir
}

// BehaviorFrame is one row of a synthetic behavior recording.
type BehaviorFrame struct {
	State    float64
	Reward   float64
	Licking  float64
	Position float64
}

// BehaviorCSV renders frames in the default behavior layout: a header row,
// then a frame counter followed by state, reward, licking and position.
func BehaviorCSV(frames []BehaviorFrame) string {
	var b strings.Builder
	b.WriteString("frame,state,reward,licking,position\n")
	for i, f := range frames {
		fmt.Fprintf(&b, "%d,%s,%s,%s,%s\n", i,
			formatCell(f.State), formatCell(f.Reward), formatCell(f.Licking), formatCell(f.Position))
	}
	return b.String()
}

// TraceCSV renders a single-column ephys trace without a header.
func TraceCSV(values []float64) string {
	var b strings.Builder
	for _, v := range values {
		b.WriteString(formatCell(v))
		b.WriteByte('\n')
	}
	return b.String()
}

func formatCell(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return fmt.Sprintf("%g", v)
}
