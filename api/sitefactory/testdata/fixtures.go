// Package testdata provides test fixtures for Site Factory API tests.
// The JSON files are trimmed copies of real factory responses.
package testdata

import (
	"embed"
	"encoding/json"
	"testing"
)

// FS embeds all JSON fixture files.
//
//go:embed */*.json
var FS embed.FS

// LoadFixture reads and returns fixture content as string.
// The path is relative to the testdata directory, e.g. "tasks/status_processing.json".
func LoadFixture(t *testing.T, path string) string {
	t.Helper()

	data, err := FS.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture %s: %v", path, err)
	}

	return string(data)
}

// LoadFixtureJSON reads a fixture and unmarshals it into v.
func LoadFixtureJSON(t *testing.T, path string, v any) {
	t.Helper()

	if err := json.Unmarshal([]byte(LoadFixture(t, path)), v); err != nil {
		t.Fatalf("failed to unmarshal fixture %s: %v", path, err)
	}
}
