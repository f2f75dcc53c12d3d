// Package persist round-trips the mesh's last-known seed list across
// restarts. See spec.md §6/§9: the format is opaque binary, and a missing or
// corrupt file must decode to an empty list rather than an error.
package persist

import (
	"bytes"
	"encoding/gob"
	"os"
	"path/filepath"
	"sort"
)

// Path is the fixed location spec.md §6 names.
const Path = "priv/please/persisted_nodes.dat"

// Load reads and gob-decodes the sorted node-name list at path. A missing
// file, an unreadable file, or a corrupt payload all yield an empty slice —
// never an error — matching the PERSISTENCE_ERROR policy in spec §7
// ("logged/ignored; in-memory state unaffected").
func Load(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil
	}
	var names []string
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&names); err != nil {
		return nil
	}
	return names
}

// Save sorts names and gob-encodes them to path, creating the containing
// directory if needed. Errors are returned for the caller to log and
// discard — persistence never blocks in-memory state.
func Save(path string, names []string) error {
	sorted := append([]string(nil), names...)
	sort.Strings(sorted)

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(sorted); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0o644)
}

// Changed reports whether sorted(current) differs from the list last read
// from disk, so PingTask only rewrites the file when its reachable set
// actually moved (spec §4.3 step 6).
func Changed(onDisk, current []string) bool {
	sortedCurrent := append([]string(nil), current...)
	sort.Strings(sortedCurrent)

	if len(onDisk) != len(sortedCurrent) {
		return true
	}
	for i, v := range onDisk {
		if v != sortedCurrent[i] {
			return true
		}
	}
	return false
}
