// Package uploads manages the content area where uploaded files are kept,
// keyed by filename.
package uploads

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"ragbot/internal/helper"
	"ragbot/internal/models"
)

var ErrInvalidName = errors.New("invalid filename")

type Area struct {
	dir string
}

func NewArea(dir string) (*Area, error) {
	if err := helper.CreateFolder(dir); err != nil {
		return nil, err
	}
	return &Area{dir: dir}, nil
}

func (a *Area) Dir() string {
	return a.dir
}

// Path returns the on-disk location of filename. Directory components are
// rejected so a name can never escape the area.
func (a *Area) Path(filename string) (string, error) {
	name := strings.TrimSpace(filename)
	if name == "" || name == "." || name == ".." || name != filepath.Base(name) || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, filename)
	}
	return filepath.Join(a.dir, name), nil
}

// Save writes data under filename, replacing any previous file of that name.
func (a *Area) Save(filename string, data []byte) (models.StoredFile, error) {
	path, err := a.Path(filename)
	if err != nil {
		return models.StoredFile{}, err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return models.StoredFile{}, fmt.Errorf("failed to save %s: %w", filename, err)
	}
	return models.StoredFile{
		Filename: filepath.Base(path),
		Path:     path,
		Data:     data,
		Format:   models.DetectFormat(path),
	}, nil
}

// Remove deletes filename from the area. It reports whether a file was removed;
// a missing file is not an error.
func (a *Area) Remove(filename string) (bool, error) {
	path, err := a.Path(filename)
	if err != nil {
		return false, err
	}
	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("failed to remove %s: %w", filename, err)
	}
	return true, nil
}
