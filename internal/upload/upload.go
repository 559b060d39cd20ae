// Package upload stores files submitted with the card form in the asset
// directory under deterministic, sanitized names.
package upload

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Slot is one of the three upload categories of a card.
type Slot string

// Upload slots; each doubles as the stored filename prefix.
const (
	SlotLogo  Slot = "logo"
	SlotPhoto Slot = "photo"
	SlotCover Slot = "cover"
)

// Handler writes uploads into a fixed asset directory.
type Handler struct {
	dir string
}

// NewHandler returns a Handler writing to dir, creating it if absent.
func NewHandler(dir string) (*Handler, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}
	return &Handler{dir: dir}, nil
}

// Dir returns the directory holding files for assetKey; an empty key
// selects the shared top-level asset directory.
func (h *Handler) Dir(assetKey string) string {
	if assetKey == "" {
		return h.dir
	}
	return filepath.Join(h.dir, assetKey)
}

// Store saves an uploaded form file for slot and returns the stored name.
// A nil header, or one without a filename (an empty file input), stores
// nothing and returns "".
func (h *Handler) Store(fh *multipart.FileHeader, slot Slot, assetKey string) (string, error) {
	if fh == nil || fh.Filename == "" {
		return "", nil
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload %s: %w", slot, err)
	}
	defer f.Close()

	return h.Save(f, fh.Filename, slot, assetKey)
}

// Save writes r under the sanitized name "<slot>_<filename>". An existing
// file with the same name is replaced.
func (h *Handler) Save(r io.Reader, filename string, slot Slot, assetKey string) (string, error) {
	if assetKey != "" && SecureFilename(assetKey) != assetKey {
		return "", fmt.Errorf("invalid asset key %q", assetKey)
	}
	name := SecureFilename(string(slot) + "_" + filename)
	if name == "" {
		return "", nil
	}

	dir := h.Dir(assetKey)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create asset directory: %w", err)
	}
	if err := writeFile(filepath.Join(dir, name), r); err != nil {
		return "", err
	}
	return name, nil
}

// Discard removes stored files of a card whose creation failed. For a
// partitioned card the whole asset-key directory is removed.
func (h *Handler) Discard(names []string, assetKey string) error {
	if assetKey != "" {
		if SecureFilename(assetKey) != assetKey {
			return fmt.Errorf("invalid asset key %q", assetKey)
		}
		if err := os.RemoveAll(h.Dir(assetKey)); err != nil {
			return fmt.Errorf("remove asset directory: %w", err)
		}
		return nil
	}

	var errs []error
	for _, name := range names {
		if name == "" || SecureFilename(name) != name {
			continue
		}
		if err := os.Remove(filepath.Join(h.dir, name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// writeFile writes r to dest through a temp file in the same directory and
// a rename, so readers never observe a partially written asset.
func writeFile(dest string, r io.Reader) (err error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), tempPrefix+"*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	if _, err = io.Copy(tmp, r); err != nil {
		err = errors.Join(fmt.Errorf("write upload: %w", err), tmp.Close())
		return err
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err = os.Chmod(tmpPath, 0o644); err != nil {
		return fmt.Errorf("chmod upload: %w", err)
	}
	if err = os.Rename(tmpPath, dest); err != nil {
		return fmt.Errorf("rename upload: %w", err)
	}
	return nil
}
