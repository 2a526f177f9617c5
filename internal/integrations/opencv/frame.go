package opencv

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"face-greeter-go/internal/core/greeting"
	"face-greeter-go/internal/core/tracking"

	"gocv.io/x/gocv"
)

// MatFrame stellt ein Kamerabild als Quelle für Identifikationsfotos bereit
type MatFrame struct {
	mat *gocv.Mat
}

// NewMatFrame umschließt mat, ohne es zu kopieren
func NewMatFrame(mat *gocv.Mat) MatFrame {
	return MatFrame{mat: mat}
}

// Crop kopiert den um margin vergrößerten Ausschnitt r als image.Image
func (f MatFrame) Crop(r image.Rectangle, margin int) (image.Image, error) {
	if f.mat == nil || f.mat.Empty() {
		return nil, errors.New("empty frame")
	}
	region := ExpandRect(r, margin, image.Rect(0, 0, f.mat.Cols(), f.mat.Rows()))
	if region.Empty() {
		return nil, fmt.Errorf("face %v outside of frame", r)
	}

	roi := f.mat.Region(region)
	defer roi.Close()
	// Region teilt den Speicher mit dem Frame
	crop := roi.Clone()
	defer crop.Close()
	return crop.ToImage()
}

var (
	colorFace    = color.RGBA{0, 255, 0, 0}
	colorGreeted = color.RGBA{255, 165, 0, 0}
	colorText    = color.RGBA{255, 255, 255, 0}
)

// Annotate zeichnet die lebenden Identitäten und Statuszeilen in img.
// Identitäten, die in diesem Frame begrüßt wurden, werden hervorgehoben.
func Annotate(img *gocv.Mat, identities []*tracking.Identity, outcomes []greeting.Outcome, lines []string) {
	greeted := make(map[int]bool)
	for _, o := range outcomes {
		if o.Fired() {
			greeted[o.IdentityID] = true
		}
	}

	for _, identity := range identities {
		c := colorFace
		if greeted[identity.ID] {
			c = colorGreeted
		}
		gocv.Rectangle(img, identity.Rect, c, 2)

		label := fmt.Sprintf("ID %d", identity.ID)
		if identity.EncounterCount > 0 {
			label = fmt.Sprintf("ID %d (%dx)", identity.ID, identity.EncounterCount)
		}
		gocv.PutText(img, label, image.Pt(identity.Rect.Min.X, identity.Rect.Min.Y-6), gocv.FontHersheyPlain, 1.2, c, 2)
	}

	for i, line := range lines {
		gocv.PutText(img, line, image.Pt(10, 20+i*20), gocv.FontHersheyPlain, 1.2, colorText, 1)
	}
}
