package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/gridpilot/gridpilot/pkg/engine"
	"github.com/gridpilot/gridpilot/pkg/log"
	"github.com/gridpilot/gridpilot/pkg/types"
)

// simulateRequest is one scenario for /api/simulate. Profile names a preset
// whose battery/inverter/diversion records replace the inline ones; Engine
// selects "scalar" (default) or "batch".
type simulateRequest struct {
	engine.Scenario
	Profile string `json:"profile,omitempty"`
	Engine  string `json:"engine,omitempty"`
}

// batchScenario is one candidate plan in /api/batch, expressed as window
// lists; the server projects them onto the step grid for the batch engine.
type batchScenario struct {
	ChargeWindows []types.Window `json:"chargeWindows"`
	ExportWindows []types.Window `json:"exportWindows"`
}

type batchRequest struct {
	Forecast  types.Forecast        `json:"forecast"`
	Battery   types.BatteryProfile  `json:"battery"`
	Inverter  types.InverterProfile `json:"inverter"`
	Profile   string                `json:"profile,omitempty"`
	Scenarios []batchScenario       `json:"scenarios"`
	Options   engine.Options        `json:"options"`
}

// applyDefaults fills the process-level keep-SOC tuning into options the
// request left zero.
func (s *Server) applyDefaults(opts *engine.Options) {
	if opts.KeepTargetKWh == 0 {
		opts.KeepTargetKWh = s.keepTargetKWh
	}
	if opts.KeepWeight == 0 {
		opts.KeepWeight = s.keepWeight
	}
}

func (s *Server) resolveEngine(name string) engine.DispatchEngine {
	switch name {
	case "", "scalar":
		return s.scalar
	case "batch":
		return s.batch
	default:
		return nil
	}
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req simulateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	eng := s.resolveEngine(req.Engine)
	if eng == nil {
		writeJSONError(w, "unknown engine "+req.Engine, http.StatusBadRequest)
		return
	}
	if req.Profile != "" {
		if s.presets == nil {
			writeJSONError(w, "no profiles loaded", http.StatusBadRequest)
			return
		}
		p, err := s.presets.Get(req.Profile)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Battery = p.Battery
		req.Inverter = p.Inverter
		req.Diversion = p.Diversion
	}
	s.applyDefaults(&req.Options)

	res, err := eng.Simulate(ctx, req.Scenario)
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleBatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(req.Scenarios) == 0 {
		writeJSONError(w, "no scenarios given", http.StatusBadRequest)
		return
	}
	if req.Profile != "" {
		if s.presets == nil {
			writeJSONError(w, "no profiles loaded", http.StatusBadRequest)
			return
		}
		p, err := s.presets.Get(req.Profile)
		if err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}
		req.Battery = p.Battery
		req.Inverter = p.Inverter
	}
	s.applyDefaults(&req.Options)

	step := req.Options.StepMinutes
	if step == 0 {
		step = engine.DefaultStepMinutes
	}
	if step < 0 || req.Options.HorizonMinutes <= 0 || req.Options.HorizonMinutes%step != 0 {
		writeJSONError(w, "horizon must be a positive multiple of the step", http.StatusBadRequest)
		return
	}
	steps := req.Options.HorizonMinutes / step

	masks := make([]engine.MaskScenario, len(req.Scenarios))
	for i, sc := range req.Scenarios {
		masks[i] = engine.MaskScenario{
			Charge: engine.WindowsToMask(sc.ChargeWindows, req.Options.StartMinute, step, steps),
			Export: engine.WindowsToMask(sc.ExportWindows, req.Options.StartMinute, step, steps),
		}
	}

	results, err := s.batch.SimulateBatch(ctx, engine.BatchRequest{
		Forecast:  req.Forecast,
		Battery:   req.Battery,
		Inverter:  req.Inverter,
		Scenarios: masks,
		Options:   req.Options,
	})
	if err != nil {
		writeJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}
	log.Ctx(ctx).DebugContext(ctx, "batch scored", slog.Int("scenarios", len(results)))
	writeJSON(w, results)
}

func (s *Server) handleEngines(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, []engine.Fidelity{s.scalar.Fidelity(), s.batch.Fidelity()})
}

func (s *Server) handleProfiles(w http.ResponseWriter, r *http.Request) {
	if s.presets == nil {
		writeJSON(w, map[string]any{})
		return
	}
	writeJSON(w, s.presets.All())
}
