// Package testutil holds helpers shared by package tests.
package testutil

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/goccy/go-json"
	"github.com/sebdah/goldie/v2"

	"github.com/ayoisaiah/codetime/internal/osutil"
)

// CompareGoldenFile verifies that output matches testdata/<name>.golden. A
// nil output asserts that no golden file exists.
func CompareGoldenFile(t *testing.T, name string, output []byte) {
	t.Helper()

	if runtime.GOOS == osutil.Windows {
		// TODO: need to sort out line endings
		t.Skip("skipping golden file test in Windows")
	}

	g := goldie.New(
		t,
		goldie.WithFixtureDir("testdata"),
	)

	if output != nil {
		g.Assert(t, name, output)
		return
	}

	f := filepath.Join("testdata", name+".golden")
	if _, err := os.Stat(f); err == nil || errors.Is(err, os.ErrExist) {
		t.Fatalf("expected no output, but golden file exists: %s", f)
	}
}

// MarshalGolden encodes v as indented JSON with a trailing newline. Map keys
// are sorted so the output is stable.
func MarshalGolden(t *testing.T, v any) []byte {
	t.Helper()

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		t.Fatalf("marshal golden output: %v", err)
	}

	return append(b, '\n')
}
