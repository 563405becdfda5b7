package settings

import "testing"

func TestLoadMissingFileWritesDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	if s.Current() != Default() {
		t.Fatalf("expected defaults, got %+v", s.Current())
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	defer s2.Close()
	if s2.Current() != Default() {
		t.Fatalf("second Open should read back the written defaults, got %+v", s2.Current())
	}
}

// TestSaveLoadRoundTrip covers Testable Property 10: load(save(s)) == s
// for every persistable field.
func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	want := Settings{
		ExposureTimeS:   42,
		GratingWidthUM:  55,
		GratingHeightUM: 66,
		WavelengthNM:    532,
		LaserPowerMW:    200,
		YMin:            10,
		YPeakToPeak:     200,
		CenterPointXMM:  7.5,
		CenterPointYMM:  8.5,
		LaserPort:       "COM6",
		ShutterPort:     "COM7",
		MotionPort:      "COM8",
	}
	s.Set(want)
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	reloaded, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reloaded.Close()

	got := reloaded.Current()
	// RadiusMM/FocalLengthMM are runtime-only and not persisted.
	got.RadiusMM, got.FocalLengthMM = want.RadiusMM, want.FocalLengthMM
	if got != want {
		t.Fatalf("round-trip mismatch:\n got  %+v\n want %+v", got, want)
	}
}

func TestSettersRejectOutOfRange(t *testing.T) {
	var s Settings
	if err := s.SetLaserPowerMW(29); err == nil {
		t.Fatal("expected error for laser power below range")
	}
	if err := s.SetLaserPowerMW(301); err == nil {
		t.Fatal("expected error for laser power above range")
	}
	if err := s.SetExposureTimeS(10); err == nil {
		t.Fatal("expected error for exposure time below floor")
	}
	if err := s.SetCenterPointXMM(-1); err == nil {
		t.Fatal("expected error for negative center point")
	}
	if s.LaserPowerMW != 0 {
		t.Fatal("rejected SetLaserPowerMW must not mutate the value")
	}
}
