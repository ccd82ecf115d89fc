package simulator

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

// Handler serves the controller's HTTP surface. Status codes match the
// firmware: 200 for GET commands, 204 for form posts that change settings.
func (s *Simulator) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/variable", s.variable).Methods(http.MethodGet)
	r.HandleFunc("/update_variable", s.updateVariable).Methods(http.MethodPost)
	r.HandleFunc("/setDebugLevel", s.setDebugLevel).Methods(http.MethodPost)
	r.HandleFunc("/setSerialOutputDisabled", s.setSerialOutput).Methods(http.MethodGet)
	r.HandleFunc("/calon", s.text("Cal is On", func() { s.SetCalMode(true) })).Methods(http.MethodGet)
	r.HandleFunc("/caloff", s.text("Cal is Off", func() { s.SetCalMode(false) })).Methods(http.MethodGet)
	r.HandleFunc("/calEl", s.text("Cal Complete", s.CalibrateElevation)).Methods(http.MethodGet)
	r.HandleFunc("/moveAz", s.move("AZ", "Azimuth")).Methods(http.MethodGet)
	r.HandleFunc("/moveEl", s.move("EL", "Elevation")).Methods(http.MethodGet)
	r.HandleFunc("/forceWeatherUpdate", s.forceWeatherUpdate).Methods(http.MethodGet)
	r.HandleFunc("/restart", s.text("Restarting...", s.Restart)).Methods(http.MethodPost)
	r.HandleFunc("/resetNeedsUnwind", s.text("Restarting...", s.ResetNeedsUnwind)).Methods(http.MethodPost)
	r.HandleFunc("/resetEEPROM", s.text("Restarting...", s.ResetEEPROM)).Methods(http.MethodPost)
	for _, name := range []string{"setSingleMotorMode", "windSafety", "windBasedHome", "weather", "stellarium"} {
		r.HandleFunc("/"+name+"On", s.toggle(name, true)).Methods(http.MethodGet)
		r.HandleFunc("/"+name+"Off", s.toggle(name, false)).Methods(http.MethodGet)
	}
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "Not Found: "+req.Method+" "+req.URL.Path, http.StatusNotFound)
	})
	return r
}

func (s *Simulator) variable(w http.ResponseWriter, r *http.Request) {
	report, err := s.Report()
	if err != nil {
		log.Print(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	data, err := json.Marshal(report)
	if err != nil {
		log.Print(err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

func (s *Simulator) text(reply string, f func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f()
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(reply))
	}
}

func (s *Simulator) toggle(name string, on bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.Toggle(name, on); err != nil {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		state := "OFF"
		if on {
			state = "ON"
		}
		w.Write([]byte(name + " " + state))
	}
}

func (s *Simulator) updateVariable(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	az, azErr := strconv.ParseFloat(r.PostForm.Get("new_setpoint_az"), 64)
	el, elErr := strconv.ParseFloat(r.PostForm.Get("new_setpoint_el"), 64)
	s.mu.Lock()
	s.setSetpoint(az, el, azErr == nil, elErr == nil)
	s.mu.Unlock()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Simulator) setDebugLevel(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if v := r.PostForm.Get("debugLevel"); v != "" {
		level, _ := strconv.Atoi(v)
		s.SetDebugLevel(level)
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Simulator) setSerialOutput(w http.ResponseWriter, r *http.Request) {
	v, ok := r.URL.Query()["disabled"]
	if !ok {
		http.Error(w, "Missing disabled parameter", http.StatusBadRequest)
		return
	}
	disabled := len(v) > 0 && v[0] == "true"
	s.SetSerialOutputDisabled(disabled)
	if disabled {
		w.Write([]byte("Serial output disabled"))
	} else {
		w.Write([]byte("Serial output enabled"))
	}
}

func (s *Simulator) move(axis, name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v := r.URL.Query().Get("value")
		if v == "" {
			http.Error(w, "Value parameter missing", http.StatusBadRequest)
			return
		}
		runTime, _ := strconv.Atoi(v)
		if !s.CalMove(axis, runTime) {
			w.Write([]byte("Cal Mode OFF"))
			return
		}
		w.Write([]byte(name + " moved to: " + v))
	}
}

func (s *Simulator) forceWeatherUpdate(w http.ResponseWriter, r *http.Request) {
	if err := s.ForceWeatherUpdate(); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	w.Write([]byte("Weather update complete"))
}
