// Package ledger zählt erfolgreiche Begrüßungen pro Schlüssel und Kalendertag.
package ledger

import (
	"fmt"
	"sort"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Store ist das Persistenz-Backend eines Ledgers
type Store interface {
	// Load liest die Zählerstände eines Tages. Ein fehlender Eintrag ist kein Fehler.
	Load(day string) (map[string]int, error)

	// Save ersetzt den gespeicherten Stand eines Tages atomar.
	Save(day string, counts map[string]int, total int) error
}

// Snapshot ist eine Kopie des Ledger-Zustands
type Snapshot struct {
	Day          string         `json:"day"`
	TotalCount   int            `json:"total_count"`
	PerKeyCounts map[string]int `json:"per_key_counts"`
}

// Ledger hält die Zähler des laufenden Tages. Der Speicherzustand ist maßgeblich,
// bis ein Speichern gelingt.
type Ledger struct {
	mu     sync.RWMutex
	store  Store
	day    string
	counts map[string]int
	dirty  bool
}

// New erstellt einen leeren Ledger für day
func New(store Store, day string) *Ledger {
	return &Ledger{
		store:  store,
		day:    day,
		counts: make(map[string]int),
	}
}

// Load liest die gespeicherten Zähler für day und macht day zum aktuellen Tag
func (l *Ledger) Load(day string) error {
	counts, err := l.store.Load(day)
	if err != nil {
		return fmt.Errorf("load ledger %s: %w", day, err)
	}
	if counts == nil {
		counts = make(map[string]int)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	l.day = day
	l.counts = counts
	l.dirty = false
	return nil
}

// Save schreibt den aktuellen Stand. Ein Fehler wird protokolliert und zurückgegeben,
// der Speicherzustand bleibt unverändert erhalten.
func (l *Ledger) Save() error {
	l.mu.RLock()
	day := l.day
	counts := copyCounts(l.counts)
	l.mu.RUnlock()

	if err := l.store.Save(day, counts, sum(counts)); err != nil {
		log.WithError(err).WithField("day", day).Error("Failed to persist encounter ledger")
		return fmt.Errorf("save ledger %s: %w", day, err)
	}

	l.mu.Lock()
	if l.day == day {
		l.dirty = false
	}
	l.mu.Unlock()
	return nil
}

// Rollover wechselt auf newDay und leert die Zähler, falls sich der Tag geändert hat.
// Liefert true, wenn tatsächlich gewechselt wurde.
func (l *Ledger) Rollover(newDay string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.day == newDay {
		return false
	}
	log.Infof("Encounter ledger rollover %s -> %s (%d greetings)", l.day, newDay, sum(l.counts))
	l.day = newDay
	l.counts = make(map[string]int)
	l.dirty = false
	return true
}

// Increment erhöht den Zähler für key und liefert den neuen Wert
func (l *Ledger) Increment(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.counts[key]++
	l.dirty = true
	return l.counts[key]
}

// Count liefert den Zähler für key
func (l *Ledger) Count(key string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.counts[key]
}

// Total liefert die Summe aller Zähler; sie wird immer neu berechnet
func (l *Ledger) Total() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return sum(l.counts)
}

// Day liefert den aktuellen Tagesstempel
func (l *Ledger) Day() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.day
}

// Dirty meldet, ob seit dem letzten erfolgreichen Speichern Änderungen anstehen
func (l *Ledger) Dirty() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.dirty
}

// Snapshot liefert eine Kopie des aktuellen Zustands
func (l *Ledger) Snapshot() Snapshot {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return Snapshot{
		Day:          l.day,
		TotalCount:   sum(l.counts),
		PerKeyCounts: copyCounts(l.counts),
	}
}

// LoadSnapshot liest den gespeicherten Stand eines Tages direkt aus store
func LoadSnapshot(store Store, day string) (Snapshot, error) {
	counts, err := store.Load(day)
	if err != nil {
		return Snapshot{}, err
	}
	if counts == nil {
		counts = make(map[string]int)
	}
	return Snapshot{Day: day, TotalCount: sum(counts), PerKeyCounts: counts}, nil
}

// Keys liefert die Schlüssel sortiert
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.PerKeyCounts))
	for k := range s.PerKeyCounts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sum(counts map[string]int) int {
	total := 0
	for _, c := range counts {
		total += c
	}
	return total
}

func copyCounts(counts map[string]int) map[string]int {
	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}
