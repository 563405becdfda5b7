package synth

import (
	"fmt"
	"math"

	"github.com/anghofus/sineplate/instrument"
	"github.com/anghofus/sineplate/settings"
)

// Ring is a derived record for one exposure cycle i in [0, N).
type Ring struct {
	RadiusM          float64
	AngularSpeedDegS float64
	Direction        int // +1 or -1
}

// Rings derives one Ring per frame Synthesize would produce for s, without
// synthesizing the raster data itself.
func Rings(s settings.Settings) ([]Ring, error) {
	radiusM := s.RadiusMM / 1000
	gratingWidthM := s.GratingWidthUM / 1e6
	gratingHeightM := s.GratingHeightUM / 1e6

	n := int(math.Floor(radiusM / gratingWidthM))
	if n <= 0 {
		return nil, &instrument.Error{
			Kind:   instrument.InvalidArgument,
			Device: "synth",
			Reason: fmt.Sprintf("radius_mm %v < grating_width_um %v, no rings would be produced", s.RadiusMM, s.GratingWidthUM),
		}
	}

	rings := make([]Ring, n)
	for i := 0; i < n; i++ {
		r := gratingWidthM * float64(i+1)
		speed := (gratingHeightM / (s.ExposureTimeS * r)) * 180 / math.Pi
		direction := 1
		if i%2 == 1 {
			direction = -1
		}
		rings[i] = Ring{RadiusM: r, AngularSpeedDegS: speed, Direction: direction}
	}
	return rings, nil
}
