package migrate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
)

var migrationName = regexp.MustCompile(`^(\d{14})_[a-z0-9_]+\.sql$`)

var requiredAnnotations = [][]byte{
	[]byte("-- +goose Up"),
	[]byte("-- +goose Down"),
}

// ValidateDir checks every .sql file in dir: timestamped name, unique version
// and both goose direction annotations. An empty dir is valid.
func ValidateDir(dir string) error {
	if dir == "" {
		return fmt.Errorf("dir is required")
	}
	files, err := filepath.Glob(filepath.Join(dir, "*.sql"))
	if err != nil {
		return fmt.Errorf("list %q: %w", dir, err)
	}

	versions := make(map[string]string, len(files))
	for _, path := range files {
		base := filepath.Base(path)
		match := migrationName.FindStringSubmatch(base)
		if match == nil {
			return fmt.Errorf("invalid migration filename %q (expected YYYYMMDDHHMMSS_name.sql)", base)
		}
		if other, dup := versions[match[1]]; dup {
			return fmt.Errorf("version %s used by both %q and %q", match[1], other, base)
		}
		versions[match[1]] = base

		if err := checkAnnotations(path); err != nil {
			return err
		}
	}
	return nil
}

func checkAnnotations(path string) error {
	body, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %q: %w", path, err)
	}
	for _, want := range requiredAnnotations {
		if !bytes.Contains(body, want) {
			return fmt.Errorf("migration %q missing %q", filepath.Base(path), want)
		}
	}
	return nil
}
