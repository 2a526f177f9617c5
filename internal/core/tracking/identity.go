package tracking

import (
	"image"
	"math"
	"time"
)

// Point ist ein Punkt in Frame-Pixelkoordinaten
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Distance liefert den euklidischen Abstand zu q
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Center liefert den Mittelpunkt eines Rechtecks
func Center(r image.Rectangle) Point {
	return Point{
		X: float64(r.Min.X) + float64(r.Dx())/2,
		Y: float64(r.Min.Y) + float64(r.Dy())/2,
	}
}

// Area liefert die Fläche eines Rechtecks in Pixeln
func Area(r image.Rectangle) float64 {
	return float64(r.Dx()) * float64(r.Dy())
}

// Identity ist ein über mehrere Frames verfolgtes Gesicht
type Identity struct {
	ID              int             `json:"id"`
	Rect            image.Rectangle `json:"rect"`
	Center          Point           `json:"center"`
	FramesSinceSeen int             `json:"frames_since_seen"`
	LastGreetedAt   time.Time       `json:"last_greeted_at"`
	EncounterCount  int             `json:"encounter_count"`
	FirstSeenAt     time.Time       `json:"first_seen_at"`
}

// Live meldet, ob die Identität im aktuellen Frame gesehen wurde
func (i *Identity) Live() bool {
	return i.FramesSinceSeen == 0
}

func (i *Identity) moveTo(r image.Rectangle) {
	i.Rect = r
	i.Center = Center(r)
	i.FramesSinceSeen = 0
}
