package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// UpdateGoldenEnv names the environment variable that rewrites golden files
// instead of comparing against them.
const UpdateGoldenEnv = "CALLCACHE_UPDATE_GOLDEN"

// LoadFixture reads a fixture file relative to the test package directory.
func LoadFixture(t testing.TB, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to load fixture from %s: %v", path, err)
	}
	return data
}

// LoadFixtureJSON reads a JSON fixture into dest.
func LoadFixtureJSON(t testing.TB, path string, dest any) {
	t.Helper()

	if err := json.Unmarshal(LoadFixture(t, path), dest); err != nil {
		t.Fatalf("failed to unmarshal JSON fixture from %s: %v", path, err)
	}
}

// WriteGolden writes data to path, creating parent directories.
func WriteGolden(t testing.TB, path string, data []byte) {
	t.Helper()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write golden file %s: %v", path, err)
	}
}

// CompareWithGolden compares actual with the golden file at path.
// A missing golden file is created from actual. When UpdateGoldenEnv is
// set the file is overwritten.
func CompareWithGolden(t testing.TB, path string, actual []byte) {
	t.Helper()

	if os.Getenv(UpdateGoldenEnv) != "" {
		WriteGolden(t, path, actual)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			t.Logf("golden file %s does not exist, creating it", path)
			WriteGolden(t, path, actual)
			return
		}
		t.Fatalf("failed to read golden file %s: %v", path, err)
	}

	if string(actual) != string(expected) {
		t.Errorf("output mismatch for %s:\nExpected:\n%s\nActual:\n%s", path, expected, actual)
	}
}

// WriteConfig writes content to name inside a per-test directory and
// returns its path. The directory is removed when the test ends.
func WriteConfig(t testing.TB, name string, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write config %s: %v", path, err)
	}
	return path
}

// FixturePath returns the path of filename under testdata.
func FixturePath(filename string) string {
	return filepath.Join("testdata", filename)
}

// GoldenPath returns the path of filename under testdata/golden.
func GoldenPath(filename string) string {
	return filepath.Join("testdata", "golden", filename)
}
