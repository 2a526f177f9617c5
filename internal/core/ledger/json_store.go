package ledger

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// JSONStore speichert einen Ledger pro Tag als JSON-Datei encounters_YYYYMMDD.json
type JSONStore struct {
	Dir string
}

type jsonRecord struct {
	Day          string         `json:"day"`
	TotalCount   int            `json:"total_count"`
	PerKeyCounts map[string]int `json:"per_key_counts"`
}

const (
	filePrefix = "encounters_"
	fileSuffix = ".json"
)

// NewJSONStore erstellt einen neuen Datei-Store
func NewJSONStore(dir string) *JSONStore {
	return &JSONStore{Dir: dir}
}

// Path liefert den Dateipfad für day
func (s *JSONStore) Path(day string) string {
	return filepath.Join(s.Dir, filePrefix+day+fileSuffix)
}

// Load liest die Zähler eines Tages; eine fehlende Datei ergibt eine leere Map
func (s *JSONStore) Load(day string) (map[string]int, error) {
	data, err := os.ReadFile(s.Path(day))
	if err != nil {
		if os.IsNotExist(err) {
			return make(map[string]int), nil
		}
		return nil, fmt.Errorf("read file: %w", err)
	}

	var rec jsonRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode %s: %w", s.Path(day), err)
	}
	if rec.PerKeyCounts == nil {
		rec.PerKeyCounts = make(map[string]int)
	}
	return rec.PerKeyCounts, nil
}

// Save schreibt zunächst eine temporäre Datei und benennt sie dann um
func (s *JSONStore) Save(day string, counts map[string]int, total int) error {
	if err := os.MkdirAll(s.Dir, 0755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	data, err := json.MarshalIndent(jsonRecord{Day: day, TotalCount: total, PerKeyCounts: counts}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode ledger: %w", err)
	}

	tmp, err := os.CreateTemp(s.Dir, filePrefix+day+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpName, s.Path(day)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("rename ledger file: %w", err)
	}
	return nil
}

// Days liefert alle gespeicherten Tage aufsteigend sortiert
func (s *JSONStore) Days() ([]string, error) {
	entries, err := os.ReadDir(s.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var days []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		days = append(days, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
	}
	sort.Strings(days)
	return days, nil
}

// DeleteBefore entfernt alle Tagesdateien vor day und liefert deren Anzahl
func (s *JSONStore) DeleteBefore(day string) (int, error) {
	days, err := s.Days()
	if err != nil {
		return 0, err
	}
	removed := 0
	for _, d := range days {
		if d >= day {
			break
		}
		if err := os.Remove(s.Path(d)); err != nil && !os.IsNotExist(err) {
			return removed, fmt.Errorf("remove %s: %w", s.Path(d), err)
		}
		removed++
	}
	return removed, nil
}

// Ensure JSONStore implements Store
var _ Store = (*JSONStore)(nil)
