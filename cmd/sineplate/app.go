package main

import (
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strconv"

	"github.com/anghofus/sineplate/coordinator"
	"github.com/anghofus/sineplate/display"
	"github.com/anghofus/sineplate/settings"
	"github.com/anghofus/sineplate/worker"
)

// App is the explicit, passed-by-reference owner of the settings Store,
// the Worker (and therefore the command/error queues and the telemetry
// cell), and the display Surface, in place of module-level globals.
// Screens are thin HTTP handlers that borrow *App for the duration of
// one request and never store each other.
type App struct {
	store   *settings.Store
	worker  *worker.Worker
	surface *display.Surface
}

func newDisplaySurface() *display.Surface {
	return display.New()
}

// routes wires the four screens (Start/Settings/Focusing/Process) plus
// the kiosk display, each a mutually exclusive HTTP route that submits
// worker.Command values or renders worker.Telemetry/instrument.Error.
func (a *App) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", a.index)
	mux.HandleFunc("/settings", a.settingsHandler)
	mux.HandleFunc("/focus", a.focusHandler)
	mux.HandleFunc("/process/start", a.processStart)
	mux.HandleFunc("/api/telemetry", a.telemetryJSON)
	mux.HandleFunc("/api/errors", a.errorsJSON)
	mux.Handle("/kiosk/stream", a.surface.Handler())
	mux.HandleFunc("/kiosk", a.kiosk)
	return mux
}

var indexTmpl = template.Must(template.New("index").Parse(`
<html>
<head><title>sineplate</title></head>
<body>
<h1>Sine Phase Plate Exposure</h1>
<p><a href="/settings">Settings</a> | <a href="/kiosk">Kiosk Display</a></p>
<form action="/focus" method="post">
	<select name="tag">
		<option>Top</option><option>Bottom</option><option>Left</option>
		<option>Right</option><option selected>Center</option>
	</select>
	<button type="submit">Go to focus location</button>
</form>
<form action="/process/start" method="post">
	<button type="submit">Start print phase plate</button>
</form>
<pre id="telemetry"></pre>
<script>
function poll() {
	fetch("/api/telemetry").then(r => r.json()).then(t => {
		document.getElementById("telemetry").textContent = JSON.stringify(t, null, 2);
	});
	fetch("/api/errors").then(r => r.json()).then(e => {
		if (e && e.length) alert(e.join("\n"));
	});
}
setInterval(poll, 500);
poll();
</script>
</body>
</html>`))

func (a *App) index(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	if err := indexTmpl.Execute(w, nil); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

var settingsTmpl = template.Must(template.New("settings").Parse(`
<html><body>
<h1>Settings</h1>
<form method="post">
{{range .Fields}}<label>{{.Name}}: <input name="{{.Name}}" value="{{.Value}}"></label><br>{{end}}
<button type="submit">Save</button>
</form>
</body></html>`))

type settingsField struct {
	Name  string
	Value string
}

// settingsHandler renders the Settings screen on GET and applies a
// posted form on POST, validating each field through the Set* methods
// before persisting — any rejected field leaves the Store untouched and
// is reported back to the caller instead of being silently dropped.
func (a *App) settingsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodGet {
		s := a.store.Current()
		fields := []settingsField{
			{"ExposureTimeS", fmt.Sprintf("%v", s.ExposureTimeS)},
			{"GratingWidthUM", fmt.Sprintf("%v", s.GratingWidthUM)},
			{"GratingHeightUM", fmt.Sprintf("%v", s.GratingHeightUM)},
			{"WavelengthNM", fmt.Sprintf("%v", s.WavelengthNM)},
			{"LaserPowerMW", fmt.Sprintf("%v", s.LaserPowerMW)},
			{"YMin", fmt.Sprintf("%v", s.YMin)},
			{"YPeakToPeak", fmt.Sprintf("%v", s.YPeakToPeak)},
			{"CenterPointXMM", fmt.Sprintf("%v", s.CenterPointXMM)},
			{"CenterPointYMM", fmt.Sprintf("%v", s.CenterPointYMM)},
			{"LaserPort", s.LaserPort},
			{"ShutterPort", s.ShutterPort},
			{"MotionPort", s.MotionPort},
		}
		w.Header().Set("Content-Type", "text/html")
		settingsTmpl.Execute(w, struct{ Fields []settingsField }{fields})
		return
	}

	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s := a.store.Current()
	if err := applySettingsForm(&s, r.PostForm); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	a.store.Set(s)
	if err := a.store.Save(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/settings", http.StatusSeeOther)
}

func applySettingsForm(s *settings.Settings, form map[string][]string) error {
	get := func(name string) (string, bool) {
		v, ok := form[name]
		if !ok || len(v) == 0 {
			return "", false
		}
		return v[0], true
	}
	if v, ok := get("ExposureTimeS"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if err := s.SetExposureTimeS(f); err != nil {
			return err
		}
	}
	if v, ok := get("GratingWidthUM"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if err := s.SetGratingWidthUM(f); err != nil {
			return err
		}
	}
	if v, ok := get("GratingHeightUM"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if err := s.SetGratingHeightUM(f); err != nil {
			return err
		}
	}
	if v, ok := get("WavelengthNM"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if err := s.SetWavelengthNM(f); err != nil {
			return err
		}
	}
	if v, ok := get("LaserPowerMW"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if err := s.SetLaserPowerMW(n); err != nil {
			return err
		}
	}
	if v, ok := get("YMin"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if err := s.SetYMin(n); err != nil {
			return err
		}
	}
	if v, ok := get("YPeakToPeak"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		if err := s.SetYPeakToPeak(n); err != nil {
			return err
		}
	}
	if v, ok := get("CenterPointXMM"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if err := s.SetCenterPointXMM(f); err != nil {
			return err
		}
	}
	if v, ok := get("CenterPointYMM"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		if err := s.SetCenterPointYMM(f); err != nil {
			return err
		}
	}
	if v, ok := get("LaserPort"); ok {
		s.LaserPort = v
	}
	if v, ok := get("ShutterPort"); ok {
		s.ShutterPort = v
	}
	if v, ok := get("MotionPort"); ok {
		s.MotionPort = v
	}
	return nil
}

var focusTags = map[string]coordinator.FocusTag{
	"Top":    coordinator.Top,
	"Bottom": coordinator.Bottom,
	"Left":   coordinator.Left,
	"Right":  coordinator.Right,
	"Center": coordinator.Center,
}

// focusHandler submits a GoToFocusLocationCmd, the Focusing screen's
// only action.
func (a *App) focusHandler(w http.ResponseWriter, r *http.Request) {
	tag, ok := focusTags[r.FormValue("tag")]
	if !ok {
		http.Error(w, "unknown focus tag", http.StatusBadRequest)
		return
	}
	if !a.submit(worker.GoToFocusLocationCmd{Tag: tag}) {
		http.Error(w, "worker busy", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// processStart submits a PrintPhasePlateCmd, the Process screen's start
// action. RUNNING is observable only via /api/telemetry.
func (a *App) processStart(w http.ResponseWriter, r *http.Request) {
	if !a.submit(worker.PrintPhasePlateCmd{}) {
		http.Error(w, "worker busy", http.StatusServiceUnavailable)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// submit enqueues cmd without blocking: a full queue means the caller
// must back off rather than stall the HTTP goroutine.
func (a *App) submit(cmd worker.Command) bool {
	select {
	case a.worker.Commands() <- cmd:
		return true
	default:
		return false
	}
}

// telemetryJSON serves the current TelemetrySnapshot, polled by the
// Process screen every ~500ms.
func (a *App) telemetryJSON(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(a.worker.Telemetry().Read())
}

// errorsJSON drains the error queue non-blockingly and returns whatever
// was pending; the UI polls it alongside telemetry.
func (a *App) errorsJSON(w http.ResponseWriter, r *http.Request) {
	var out []string
	for {
		select {
		case e := <-a.worker.Errors():
			out = append(out, e.Error())
			continue
		default:
		}
		break
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(out)
}

var kioskTmpl = template.Must(template.New("kiosk").Parse(`
<html>
<head><style>body{margin:0;background:black;}canvas{width:100vw;height:100vh;}</style></head>
<body>
<canvas id="c" width="1920" height="1200"></canvas>
<script>
var canvas = document.getElementById("c");
var ctx = canvas.getContext("2d");
var ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/kiosk/stream");
ws.binaryType = "arraybuffer";
ws.onmessage = function(ev) {
	var bytes = new Uint8Array(ev.data);
	var img = ctx.createImageData(1920, 1200);
	for (var i = 0; i < bytes.length; i++) {
		img.data[i*4] = bytes[i];
		img.data[i*4+1] = bytes[i];
		img.data[i*4+2] = bytes[i];
		img.data[i*4+3] = 255;
	}
	ctx.putImageData(img, 0, 0);
};
</script>
</body>
</html>`))

// kiosk serves the secondary full-screen display page: its sole content
// is the current SLM frame, streamed over /kiosk/stream.
func (a *App) kiosk(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	kioskTmpl.Execute(w, nil)
}
