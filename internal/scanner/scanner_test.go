package scanner

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// DirectoryStructure represents a generated directory layout for testing.
type DirectoryStructure struct {
	Files       []string
	Directories []string
}

func genName(suffix string) gopter.Gen {
	return gen.IntRange(1, 12).FlatMap(func(length interface{}) gopter.Gen {
		return gen.SliceOfN(length.(int), gen.AlphaLowerChar())
	}, reflect.TypeOf([]rune{})).Map(func(chars []rune) string {
		return string(chars) + suffix
	})
}

func genDirectoryStructure() gopter.Gen {
	return gopter.CombineGens(
		gen.SliceOfN(5, genName(".txt")),
		gen.SliceOfN(3, genName("_dir")),
	).Map(func(vals []interface{}) DirectoryStructure {
		return DirectoryStructure{
			Files:       unique(vals[0].([]string)),
			Directories: unique(vals[1].([]string)),
		}
	})
}

func unique(in []string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, s := range in {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func setupDir(t *testing.T, s DirectoryStructure) string {
	t.Helper()
	dir, err := os.MkdirTemp("", "kaizen-scan-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	for _, f := range s.Files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create file: %v", err)
		}
	}
	for _, d := range s.Directories {
		sub := filepath.Join(dir, d)
		if err := os.Mkdir(sub, 0755); err != nil {
			t.Fatalf("Failed to create dir: %v", err)
		}
		// Nested files must never be reported
		if err := os.WriteFile(filepath.Join(sub, "nested.txt"), []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create nested file: %v", err)
		}
	}
	return dir
}

// Property: Scan returns exactly the regular files at the top level.
func TestScan_ReturnsOnlyTopLevelFiles(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 50
	properties := gopter.NewProperties(parameters)

	properties.Property("scan lists top-level files only", prop.ForAll(
		func(s DirectoryStructure) bool {
			dir := setupDir(t, s)
			defer os.RemoveAll(dir)

			entries, err := Scan(dir)
			if err != nil {
				t.Logf("Scan failed: %v", err)
				return false
			}

			var names []string
			for _, e := range entries {
				if filepath.Dir(e.FullPath) != dir && !sameDir(filepath.Dir(e.FullPath), dir) {
					return false
				}
				names = append(names, e.Name)
			}
			want := append([]string(nil), s.Files...)
			sort.Strings(names)
			sort.Strings(want)
			if len(names) != len(want) {
				return false
			}
			for i := range names {
				if names[i] != want[i] {
					return false
				}
			}
			return true
		},
		genDirectoryStructure(),
	))

	properties.TestingRun(t)
}

func sameDir(a, b string) bool {
	ra, errA := filepath.EvalSymlinks(a)
	rb, errB := filepath.EvalSymlinks(b)
	return errA == nil && errB == nil && ra == rb
}

func TestScan_OldestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Now().Add(-time.Hour)
	for i, name := range []string{"c.txt", "a.txt", "b.txt"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte(name), 0644); err != nil {
			t.Fatal(err)
		}
		mt := base.Add(time.Duration(i) * time.Minute)
		if err := os.Chtimes(p, mt, mt); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	var got []string
	for _, e := range entries {
		got = append(got, e.Name)
	}
	want := []string{"c.txt", "a.txt", "b.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}

func TestScan_SkipsSymlinks(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(t.TempDir(), "target.txt")
	if err := os.WriteFile(target, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.Symlink(target, filepath.Join(dir, "link.txt")); err != nil {
		t.Skipf("Symlinks not supported: %v", err)
	}

	entries, err := Scan(dir)
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected symlink to be skipped, got %v", entries)
	}
}

func TestScan_MissingDirectory(t *testing.T) {
	_, err := Scan(filepath.Join(t.TempDir(), "nope"))
	var scanErr *ScanError
	if !errors.As(err, &scanErr) {
		t.Fatalf("Expected ScanError, got %v", err)
	}
	if scanErr.Type != DirectoryNotFound {
		t.Errorf("Expected DIRECTORY_NOT_FOUND, got %s", scanErr.Type)
	}
}

func TestScan_FileIsNotADirectory(t *testing.T) {
	file := filepath.Join(t.TempDir(), "plain.txt")
	if err := os.WriteFile(file, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err := Scan(file)
	var scanErr *ScanError
	if !errors.As(err, &scanErr) || scanErr.Type != DirectoryNotFound {
		t.Fatalf("Expected DIRECTORY_NOT_FOUND, got %v", err)
	}
}

func TestScan_EmptyDirectory(t *testing.T) {
	entries, err := Scan(t.TempDir())
	if err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("Expected no entries, got %d", len(entries))
	}
}
