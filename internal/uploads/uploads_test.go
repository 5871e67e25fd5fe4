package uploads

import (
	"errors"
	"os"
	"testing"

	"ragbot/internal/models"
)

func TestSaveOverwritesAndDetectsFormat(t *testing.T) {
	area, err := NewArea(t.TempDir())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := area.Save("report.pdf", []byte("first")); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	stored, err := area.Save("report.pdf", []byte("second"))
	if err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if stored.Format != models.FormatPDF || stored.Filename != "report.pdf" {
		t.Fatalf("unexpected stored file: %+v", stored)
	}

	data, err := os.ReadFile(stored.Path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second" {
		t.Fatalf("expected overwrite, got %q", data)
	}
}

func TestRemove(t *testing.T) {
	area, err := NewArea(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := area.Save("a.txt", []byte("x")); err != nil {
		t.Fatal(err)
	}

	removed, err := area.Remove("a.txt")
	if err != nil || !removed {
		t.Fatalf("expected removal, got %v %v", removed, err)
	}
	removed, err = area.Remove("a.txt")
	if err != nil || removed {
		t.Fatalf("expected no-op removal, got %v %v", removed, err)
	}
}

func TestPathRejectsTraversal(t *testing.T) {
	area, err := NewArea(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"", "..", "../etc/passwd", "dir/file.txt", `dir\file.txt`} {
		if _, err := area.Path(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("expected ErrInvalidName for %q, got %v", name, err)
		}
	}
}
