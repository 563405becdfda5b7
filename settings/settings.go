// Package settings holds the validated, persistable parameter set for an
// exposure run: geometry, exposure timing, laser power, and the three
// serial port identifiers.
package settings

import "fmt"

// Settings is the full parameter set. radius_mm and focal_length_mm are
// runtime-only (required at run, not persisted); the rest round-trips
// through the JSON settings file.
type Settings struct {
	RadiusMM        float64
	FocalLengthMM   float64
	ExposureTimeS   float64
	GratingWidthUM  float64
	GratingHeightUM float64
	WavelengthNM    float64
	LaserPowerMW    int
	YMin            int
	YPeakToPeak     int
	CenterPointXMM  float64
	CenterPointYMM  float64

	LaserPort   string
	ShutterPort string
	MotionPort  string
}

// ExposureTimeFloor is the configurable safety minimum for ExposureTimeS,
// a variable rather than a literal scattered across setters so it can be
// tuned without hunting down every call site.
var ExposureTimeFloor = 11.0

// Default returns the zero-run baseline: a safe exposure time, laser power
// at the bottom of its legal range, and center point at the middle of its
// legal range.
func Default() Settings {
	return Settings{
		ExposureTimeS:   ExposureTimeFloor,
		GratingWidthUM:  70,
		GratingHeightUM: 70,
		WavelengthNM:    633,
		LaserPowerMW:    30,
		YMin:            0,
		YPeakToPeak:     255,
		CenterPointXMM:  12.5,
		CenterPointYMM:  12.5,
		LaserPort:       "/dev/ttyUSB0",
		ShutterPort:     "/dev/ttyUSB1",
		MotionPort:      "/dev/ttyUSB2",
	}
}

// SetRadiusMM validates and assigns RadiusMM. Required at run (≥0).
func (s *Settings) SetRadiusMM(v float64) error {
	if v < 0 {
		return fmt.Errorf("radius_mm must be >= 0, got %v", v)
	}
	s.RadiusMM = v
	return nil
}

// SetFocalLengthMM validates and assigns FocalLengthMM. Required at run (≥0).
func (s *Settings) SetFocalLengthMM(v float64) error {
	if v < 0 {
		return fmt.Errorf("focal_length_mm must be >= 0, got %v", v)
	}
	s.FocalLengthMM = v
	return nil
}

// SetExposureTimeS validates and assigns ExposureTimeS.
func (s *Settings) SetExposureTimeS(v float64) error {
	if v < ExposureTimeFloor {
		return fmt.Errorf("exposure_time_s must be >= %v, got %v", ExposureTimeFloor, v)
	}
	s.ExposureTimeS = v
	return nil
}

// SetGratingWidthUM validates and assigns GratingWidthUM.
func (s *Settings) SetGratingWidthUM(v float64) error {
	if v <= 0 {
		return fmt.Errorf("grating_width_um must be > 0, got %v", v)
	}
	s.GratingWidthUM = v
	return nil
}

// SetGratingHeightUM validates and assigns GratingHeightUM.
func (s *Settings) SetGratingHeightUM(v float64) error {
	if v <= 0 {
		return fmt.Errorf("grating_height_um must be > 0, got %v", v)
	}
	s.GratingHeightUM = v
	return nil
}

// SetWavelengthNM validates and assigns WavelengthNM.
func (s *Settings) SetWavelengthNM(v float64) error {
	if v <= 0 {
		return fmt.Errorf("wavelength_nm must be > 0, got %v", v)
	}
	s.WavelengthNM = v
	return nil
}

// SetLaserPowerMW validates and assigns LaserPowerMW (30..=300).
func (s *Settings) SetLaserPowerMW(v int) error {
	if v < 30 || v > 300 {
		return fmt.Errorf("laser_power_mW must be in [30, 300], got %d", v)
	}
	s.LaserPowerMW = v
	return nil
}

// SetYMin validates and assigns YMin (0..=255).
func (s *Settings) SetYMin(v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("y_min must be in [0, 255], got %d", v)
	}
	s.YMin = v
	return nil
}

// SetYPeakToPeak validates and assigns YPeakToPeak (0..=255).
func (s *Settings) SetYPeakToPeak(v int) error {
	if v < 0 || v > 255 {
		return fmt.Errorf("y_peak_to_peak must be in [0, 255], got %d", v)
	}
	s.YPeakToPeak = v
	return nil
}

// SetCenterPointXMM validates and assigns CenterPointXMM (0..=25).
func (s *Settings) SetCenterPointXMM(v float64) error {
	if v < 0 || v > 25 {
		return fmt.Errorf("center_point_x_mm must be in [0, 25], got %v", v)
	}
	s.CenterPointXMM = v
	return nil
}

// SetCenterPointYMM validates and assigns CenterPointYMM (0..=25).
func (s *Settings) SetCenterPointYMM(v float64) error {
	if v < 0 || v > 25 {
		return fmt.Errorf("center_point_y_mm must be in [0, 25], got %v", v)
	}
	s.CenterPointYMM = v
	return nil
}
