// Package jsonfile persists the dashboard state as JSON files on disk.
// Every write goes to a temp file in the target directory first and is
// renamed over the original, so a crash can never leave a half-written
// file behind.
package jsonfile

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

func saveJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling")
	}

	dir := filepath.Dir(path)
	if err = os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(err, "creating data dir")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return errors.Wrap(err, "creating temp file")
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return errors.Wrap(err, "writing temp file")
	}
	if err = tmp.Sync(); err != nil {
		tmp.Close()
		return errors.Wrap(err, "syncing temp file")
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrap(err, "closing temp file")
	}
	return errors.Wrap(os.Rename(tmp.Name(), path), "replacing file")
}

// loadJSON reads path into v. The raw os error is returned on read failure
// so callers can check os.IsNotExist and fall back to a default.
func loadJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return errors.Wrapf(json.Unmarshal(data, v), "parsing %s", filepath.Base(path))
}
