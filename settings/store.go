package settings

import (
	"bytes"
	"encoding/json"
	"log"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// fileName is the fixed JSON settings file consulted by Load/Save.
const fileName = "settings.json"

// persisted is the subset of Settings written to disk: radius_mm and
// focal_length_mm are runtime-only derived values and excluded.
type persisted struct {
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

func toPersisted(s Settings) persisted {
	return persisted{
		ExposureTimeS:   s.ExposureTimeS,
		GratingWidthUM:  s.GratingWidthUM,
		GratingHeightUM: s.GratingHeightUM,
		WavelengthNM:    s.WavelengthNM,
		LaserPowerMW:    s.LaserPowerMW,
		YMin:            s.YMin,
		YPeakToPeak:     s.YPeakToPeak,
		CenterPointXMM:  s.CenterPointXMM,
		CenterPointYMM:  s.CenterPointYMM,
		LaserPort:       s.LaserPort,
		ShutterPort:     s.ShutterPort,
		MotionPort:      s.MotionPort,
	}
}

func (p persisted) merge(into *Settings) {
	into.ExposureTimeS = p.ExposureTimeS
	into.GratingWidthUM = p.GratingWidthUM
	into.GratingHeightUM = p.GratingHeightUM
	into.WavelengthNM = p.WavelengthNM
	into.LaserPowerMW = p.LaserPowerMW
	into.YMin = p.YMin
	into.YPeakToPeak = p.YPeakToPeak
	into.CenterPointXMM = p.CenterPointXMM
	into.CenterPointYMM = p.CenterPointYMM
	into.LaserPort = p.LaserPort
	into.ShutterPort = p.ShutterPort
	into.MotionPort = p.MotionPort
}

// Store owns the in-memory Settings value for the UI goroutine. It is not
// safe for concurrent use: the UI owns it and takes a value snapshot when
// starting the Worker.
type Store struct {
	path string
	dir  string

	mu       sync.Mutex
	current  Settings
	watcher  *fsnotify.Watcher
	external chan struct{}
}

// Open loads path (or writes defaults if missing) and starts an fsnotify
// watch so the Settings screen can detect edits made outside the process.
func Open(dir string) (*Store, error) {
	s := &Store{
		path:     dir + string(os.PathSeparator) + fileName,
		dir:      dir,
		current:  Default(),
		external: make(chan struct{}, 1),
	}
	if err := s.Load(); err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("settings: fsnotify unavailable, external edits won't be detected: %v", err)
		return s, nil
	}
	if err := w.Add(dir); err != nil {
		log.Printf("settings: failed to watch %s: %v", dir, err)
		w.Close()
		return s, nil
	}
	s.watcher = w
	go s.watchLoop()
	return s, nil
}

func (s *Store) watchLoop() {
	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if ev.Name == s.path && (ev.Op&(fsnotify.Write|fsnotify.Create) != 0) {
				select {
				case s.external <- struct{}{}:
				default:
				}
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("settings: watch error: %v", err)
		}
	}
}

// Invalidated reports, without blocking, whether settings.json changed on
// disk since the last Load and the Settings screen should re-read it.
func (s *Store) Invalidated() bool {
	select {
	case <-s.external:
		return true
	default:
		return false
	}
}

// Load reads the fixed JSON filename. A missing file is not an error: it
// writes defaults and keeps them.
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.mu.Lock()
		s.current = Default()
		s.mu.Unlock()
		return s.Save()
	}
	if err != nil {
		return err
	}
	var p persisted
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	radius, focal := s.current.RadiusMM, s.current.FocalLengthMM
	p.merge(&s.current)
	s.current.RadiusMM, s.current.FocalLengthMM = radius, focal
	return nil
}

// Save serializes all persistable fields with MarshalIndent and writes
// the result, skipping the write entirely if the file is unchanged (so
// the fsnotify watch doesn't re-trigger on our own write).
func (s *Store) Save() error {
	s.mu.Lock()
	p := toPersisted(s.current)
	s.mu.Unlock()
	data, err := json.MarshalIndent(&p, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	existing, _ := os.ReadFile(s.path)
	if bytes.Equal(existing, data) {
		return nil
	}
	return os.WriteFile(s.path, data, 0600)
}

// Current returns a copy of the in-memory Settings.
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Set replaces the in-memory Settings wholesale; callers validate
// individual fields via the Set* methods on the value before calling this.
func (s *Store) Set(v Settings) {
	s.mu.Lock()
	s.current = v
	s.mu.Unlock()
}

// Snapshot returns a value copy for the Worker to own for its lifetime:
// Settings is shared immutably by snapshot at command-dispatch time.
func (s *Store) Snapshot() Settings {
	return s.Current()
}

// Close stops the filesystem watch.
func (s *Store) Close() error {
	if s.watcher == nil {
		return nil
	}
	return s.watcher.Close()
}
