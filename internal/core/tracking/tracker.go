// Package tracking fasst die Rohdetektionen eines Frames zu langlebigen Identitäten zusammen.
package tracking

import (
	"image"
	"math"
	"time"
)

// Zuordnungsstrategien
const (
	// AssignFirst ordnet eine Detektion der ersten Identität (in Tracker-Reihenfolge) unter der Schwelle zu
	AssignFirst = "first"
	// AssignNearest ordnet eine Detektion der günstigsten freien Identität unter der Schwelle zu
	AssignNearest = "nearest"
)

// Config enthält die Parameter der Identitätsverfolgung
type Config struct {
	MatchThreshold   float64 // Kosten unterhalb dieses Werts gelten als Treffer
	SizeWeight       float64 // Gewicht der Größenabweichung in Pixel-Äquivalenten
	MaxFramesMissing int     // Identitäten mit mehr Fehlframes werden entfernt
	Assignment       string
}

// DefaultConfig liefert die Referenzwerte
func DefaultConfig() Config {
	return Config{
		MatchThreshold:   100,
		SizeWeight:       100,
		MaxFramesMissing: 10,
		Assignment:       AssignFirst,
	}
}

// UpdateResult beschreibt die Änderungen eines Update-Aufrufs
type UpdateResult struct {
	Created []*Identity
	Matched []*Identity
	Removed []*Identity
}

// Tracker verwaltet die Menge der Identitäten einer Kamerasitzung.
// Er ist nicht threadsicher und wird ausschließlich aus der Frame-Schleife aufgerufen.
type Tracker struct {
	cfg        Config
	identities []*Identity
	nextID     int
}

// New erstellt einen neuen Tracker
func New(cfg Config) *Tracker {
	if cfg.Assignment == "" {
		cfg.Assignment = AssignFirst
	}
	return &Tracker{cfg: cfg}
}

// Cost berechnet die Zuordnungskosten zwischen einer Identität und einer Detektion:
// Mittelpunktabstand plus gewichtete relative Flächenabweichung.
func (t *Tracker) Cost(identity *Identity, detection image.Rectangle) float64 {
	return identity.Center.Distance(Center(detection)) + t.cfg.SizeWeight*SizeDissimilarity(identity.Rect, detection)
}

// SizeDissimilarity liefert |A1 - A2| / max(A1, A2) im Bereich [0, 1]
func SizeDissimilarity(a, b image.Rectangle) float64 {
	areaA, areaB := Area(a), Area(b)
	largest := math.Max(areaA, areaB)
	if largest == 0 {
		return 0
	}
	return math.Abs(areaA-areaB) / largest
}

// Update ordnet die Detektionen eines Frames den bestehenden Identitäten zu.
// Die Zuordnung ist 1:1 und gierig: jede Detektion wird in ihrer Reihenfolge bearbeitet.
// Nicht zugeordnete Detektionen werden zu neuen Identitäten, veraltete Identitäten entfallen.
func (t *Tracker) Update(detections []image.Rectangle, now time.Time) UpdateResult {
	var result UpdateResult

	for _, identity := range t.identities {
		identity.FramesSinceSeen++
	}

	matched := make(map[*Identity]bool, len(t.identities))

	for _, det := range detections {
		identity := t.match(det, matched)
		if identity != nil {
			identity.moveTo(det)
			matched[identity] = true
			result.Matched = append(result.Matched, identity)
			continue
		}

		t.nextID++
		created := &Identity{
			ID:          t.nextID,
			FirstSeenAt: now,
		}
		created.moveTo(det)
		t.identities = append(t.identities, created)
		// eine neue Identität ist für diesen Frame bereits vergeben
		matched[created] = true
		result.Created = append(result.Created, created)
	}

	kept := t.identities[:0]
	for _, identity := range t.identities {
		if identity.FramesSinceSeen > t.cfg.MaxFramesMissing {
			result.Removed = append(result.Removed, identity)
			continue
		}
		kept = append(kept, identity)
	}
	for i := len(kept); i < len(t.identities); i++ {
		t.identities[i] = nil
	}
	t.identities = kept

	return result
}

func (t *Tracker) match(det image.Rectangle, matched map[*Identity]bool) *Identity {
	var best *Identity
	bestCost := t.cfg.MatchThreshold

	for _, identity := range t.identities {
		if matched[identity] {
			continue
		}
		cost := t.Cost(identity, det)
		if cost >= t.cfg.MatchThreshold {
			continue
		}
		if t.cfg.Assignment != AssignNearest {
			return identity
		}
		if best == nil || cost < bestCost {
			best, bestCost = identity, cost
		}
	}
	return best
}

// Identities liefert die aktuellen Identitäten in Tracker-Reihenfolge
func (t *Tracker) Identities() []*Identity {
	out := make([]*Identity, len(t.identities))
	copy(out, t.identities)
	return out
}

// Live liefert die im aktuellen Frame gesehenen Identitäten in Tracker-Reihenfolge
func (t *Tracker) Live() []*Identity {
	var out []*Identity
	for _, identity := range t.identities {
		if identity.Live() {
			out = append(out, identity)
		}
	}
	return out
}

// Len liefert die Anzahl der verfolgten Identitäten
func (t *Tracker) Len() int {
	return len(t.identities)
}

// Reset verwirft alle Identitäten. Die ID-Vergabe läuft monoton weiter.
func (t *Tracker) Reset() {
	t.identities = nil
}
