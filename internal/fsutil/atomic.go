// Package fsutil provides small filesystem helpers shared by every
// component that treats the filesystem as the source of truth.
package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// WriteFileAtomic writes data to path by first writing a sibling temp file
// and then renaming it into place, so concurrent readers never observe a
// partial write (spec §4.1 invariant 2, §6 "temp-then-rename").
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create directory %s: %w", dir, err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("write temp file %s: %w", tmp, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("rename %s to %s: %w", tmp, path, err)
	}
	return nil
}

// WriteJSONAtomic marshals v as indented JSON and writes it atomically.
func WriteJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	return WriteFileAtomic(path, data, 0644)
}

// ReadJSON reads and unmarshals path into v. Returns the underlying
// os.ReadFile/json.Unmarshal error unchanged so callers can distinguish
// "missing" (os.IsNotExist) from "malformed".
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Exists reports whether path exists, treating any stat error other than
// "not exist" as false (the caller's next operation will surface it).
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// ListJSONFiles returns the base names of every regular ".json" file
// directly inside dir, sorted by filename. A missing directory yields an
// empty, non-error result.
func ListJSONFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		out = append(out, e.Name())
	}
	return out, nil
}
