package store

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"testing"
)

var (
	migrationsDir    = filepath.Join("..", "..", "db", "migrations")
	migrationPattern = regexp.MustCompile(`^(\d{4})_[a-z0-9_]+\.(up|down)\.sql$`)
)

// migrationFiles lists migration file names for one direction, sorted.
func migrationFiles(direction string) ([]string, error) {
	entries, err := os.ReadDir(migrationsDir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if m := migrationPattern.FindStringSubmatch(entry.Name()); m != nil && m[2] == direction {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

func TestMigrationsArePairedAndContiguous(t *testing.T) {
	ups, err := migrationFiles("up")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	downs, err := migrationFiles("down")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	if len(ups) == 0 {
		t.Fatal("no migrations discovered")
	}
	if len(ups) != len(downs) {
		t.Fatalf("%d up files but %d down files", len(ups), len(downs))
	}

	for i, up := range ups {
		version := migrationPattern.FindStringSubmatch(up)[1]
		if want := fmt.Sprintf("%04d", i+1); version != want {
			t.Fatalf("migration %s breaks the sequence, want version %s", up, want)
		}
		if downVersion := migrationPattern.FindStringSubmatch(downs[i])[1]; downVersion != version {
			t.Fatalf("version %s has no matching down file", version)
		}
	}
}

func TestUpFilesSkipDownFiles(t *testing.T) {
	ups, err := migrationFiles("up")
	if err != nil {
		t.Fatalf("read migrations dir: %v", err)
	}
	listed, err := upFiles(migrationsDir)
	if err != nil {
		t.Fatalf("upFiles() error = %v", err)
	}
	if len(listed) != len(ups) {
		t.Fatalf("upFiles() found %d files, want %d", len(listed), len(ups))
	}
	for i := range ups {
		if filepath.Base(listed[i]) != ups[i] {
			t.Fatalf("upFiles()[%d] = %s, want %s", i, listed[i], ups[i])
		}
	}
}
