// Package synth synthesizes the grayscale raster frames that realize a
// sine phase plate: one frame per concentric ring, derived purely from a
// Settings value.
package synth

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/anghofus/sineplate/instrument"
	"github.com/anghofus/sineplate/settings"
)

const (
	frameWidth  = 1920
	frameHeight = 1200
)

// Frame is one 1920x1200 grayscale raster, satisfying image.Image so it
// can be handed directly to the display surface or encoded to PNG.
type Frame [frameHeight][frameWidth]uint8

// ColorModel satisfies image.Image.
func (f *Frame) ColorModel() color.Model { return color.GrayModel }

// Bounds satisfies image.Image.
func (f *Frame) Bounds() image.Rectangle {
	return image.Rect(0, 0, frameWidth, frameHeight)
}

// At satisfies image.Image, returning the 0..255 gray value at (x, y).
func (f *Frame) At(x, y int) color.Color { return color.Gray{Y: f[y][x]} }

// Gray8At returns the raw 0..255 sample at (x, y), for callers that want
// the byte directly rather than a color.Color.
func (f *Frame) Gray8At(x, y int) uint8 { return f[y][x] }

// FrameSet is the ordered, finite sequence of frames produced once per
// run, one per concentric ring.
type FrameSet []Frame

// Options controls synthesis behavior not determined by Settings alone.
type Options struct {
	// LegacyRadiansBug reproduces a known-buggy extra radians conversion
	// applied to an already-radian quantity, which produces a much
	// slower chirp than the physically intended form. Default false:
	// the physically correct form. Kept as an explicit flag rather than
	// silently fixed or silently kept, pending validation against
	// measured period data.
	LegacyRadiansBug bool
}

// Synthesize derives slm_count = floor(radius_m / grating_width_m) frames
// from s. It is pure and deterministic and completes fully before any
// ring begins exposing.
func Synthesize(s settings.Settings, opt Options) (FrameSet, error) {
	radiusM := s.RadiusMM / 1000
	gratingWidthM := s.GratingWidthUM / 1e6
	focalLengthM := s.FocalLengthMM / 1000
	wavelengthM := s.WavelengthNM / 1e9

	slmCount := int(math.Floor(radiusM / gratingWidthM))
	if slmCount <= 0 {
		return nil, &instrument.Error{
			Kind:   instrument.InvalidArgument,
			Device: "synth",
			Reason: fmt.Sprintf("radius_mm %v < grating_width_um %v, no rings would be produced", s.RadiusMM, s.GratingWidthUM),
		}
	}

	totalWidth := frameWidth * slmCount
	pixelWidth := radiusM / float64(totalWidth)

	row := make([]uint8, totalWidth)
	for x := 0; x < totalWidth; x++ {
		r := float64(x) * pixelWidth
		phase := math.Pi * r * r / (focalLengthM * wavelengthM)
		if opt.LegacyRadiansBug {
			phase = (math.Pi / 180) * phase
		}
		value := float64(s.YMin) + (1+sawtooth(phase))/2*float64(s.YPeakToPeak)
		row[x] = clampByte(value)
	}

	frames := make(FrameSet, slmCount)
	for i := 0; i < slmCount; i++ {
		slice := row[frameWidth*i : frameWidth*(i+1)]
		for y := 0; y < frameHeight; y++ {
			copy(frames[i][y][:], slice)
		}
	}
	return frames, nil
}

// sawtooth is the canonical rising sawtooth on [-1, +1] with period 2π:
// sawtooth(0) = -1, rising linearly to +1 just before the next period.
func sawtooth(phase float64) float64 {
	x := math.Mod(phase, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x/math.Pi - 1
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
