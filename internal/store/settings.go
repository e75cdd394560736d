package store

import (
	"sort"
	"sync"
)

var settingsHeader = []string{"Setting", "Value"}

// Settings is the file-backed key-value settings table.
type Settings struct {
	path string
	mu   sync.Mutex
}

// newSettings opens the settings table, seeding it with defaults when the
// file does not exist yet. An existing file is left untouched so user
// edits survive restarts.
func newSettings(path string, defaults map[string]string) (*Settings, error) {
	s := &Settings{path: path}

	existing, err := readRows(path, len(settingsHeader))
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return s, nil
	}

	keys := make([]string, 0, len(defaults))
	for k := range defaults {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, defaults[k]})
	}
	if err := rewriteFile(path, settingsHeader, rows); err != nil {
		return nil, err
	}
	return s, nil
}

// All returns every setting.
func (s *Settings) All() (map[string]string, error) {
	rows, err := readRows(s.path, len(settingsHeader))
	if err != nil {
		return nil, err
	}

	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row[0]] = row[1]
	}
	return settings, nil
}

// Get returns a single setting value, or empty string if unset.
func (s *Settings) Get(key string) (string, error) {
	settings, err := s.All()
	if err != nil {
		return "", err
	}
	return settings[key], nil
}

// Set writes a setting, creating or replacing the row. The whole file is
// rewritten, as the table is small.
func (s *Settings) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := readRows(s.path, len(settingsHeader))
	if err != nil {
		return err
	}

	replaced := false
	for _, row := range rows {
		if row[0] == key {
			row[1] = value
			replaced = true
		}
	}
	if !replaced {
		rows = append(rows, []string{key, value})
	}

	return rewriteFile(s.path, settingsHeader, rows)
}
