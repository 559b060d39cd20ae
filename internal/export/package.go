package export

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/atinyakov/cardkeeper/internal/models"
)

const indexEntry = "index.html"

// Snapshotter renders the standalone HTML page shipped as index.html.
// Image references in the page must be bare relative filenames.
type Snapshotter interface {
	RenderSnapshot(w io.Writer, card *models.Card) error
}

// Packager builds zip packages from a card and the asset directory.
type Packager struct {
	dir   string
	pages Snapshotter
}

// NewPackager returns a Packager reading assets from dir.
func NewPackager(dir string, pages Snapshotter) *Packager {
	return &Packager{dir: dir, pages: pages}
}

// Package returns a zip archive holding index.html followed by every regular
// file of the card's asset directory, sorted by name. Cards with an asset key
// only get their own subdirectory; otherwise the whole shared directory is
// included. A missing directory yields an archive with index.html only.
func (p *Packager) Package(card *models.Card) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	w, err := zw.Create(indexEntry)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", indexEntry, err)
	}
	if err := p.pages.RenderSnapshot(w, card); err != nil {
		return nil, fmt.Errorf("render snapshot: %w", err)
	}

	dir := p.dir
	if card.AssetKey != "" {
		dir = filepath.Join(p.dir, card.AssetKey)
	}
	entries, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read asset dir: %w", err)
	}

	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") || name == indexEntry {
			continue
		}
		if err := addFile(zw, filepath.Join(dir, name), name); err != nil {
			return nil, err
		}
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open asset %s: %w", name, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat asset %s: %w", name, err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("zip header %s: %w", name, err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return fmt.Errorf("create entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("copy asset %s: %w", name, err)
	}
	return nil
}
