package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/kinoreplan/internal/config"
	"github.com/banshee-data/kinoreplan/internal/plan"
	"github.com/banshee-data/kinoreplan/internal/store"
)

type Server struct {
	ctrl   *plan.Controller
	log    *store.FlightLog
	tuning *config.TuningConfig
}

func NewServer(ctrl *plan.Controller, log *store.FlightLog, tuning *config.TuningConfig) *Server {
	return &Server{
		ctrl:   ctrl,
		log:    log,
		tuning: tuning,
	}
}

func (s *Server) homeHandler(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("Welcome to the Replan Server!"))
}

func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/goal", s.sendGoalHandler)
	mux.HandleFunc("/state", s.stateHandler)
	mux.HandleFunc("/planner/params", s.plannerParams)
	mux.HandleFunc("/transitions", s.listTransitions)
	mux.HandleFunc("/trajectories", s.listTrajectories)
	mux.HandleFunc("/", s.homeHandler)
	return mux
}

// goalRequest is the POST /goal body.
type goalRequest struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

func (s *Server) sendGoalHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req goalRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Failed to parse goal", http.StatusBadRequest)
		return
	}

	msg := plan.GoalMessage{Poses: []plan.GoalPose{
		{Position: r3.Vec{X: req.X, Y: req.Y, Z: req.Z}},
	}}
	if msg.Sentinel() {
		http.Error(w, "Goal rejected: sentinel pose", http.StatusBadRequest)
		return
	}

	s.ctrl.OnGoal(msg)
	io.WriteString(w, "Goal accepted")
}

// stateResponse is the GET /state body.
type stateResponse struct {
	State    plan.State `json:"state"`
	HaveOdom bool       `json:"have_odom"`
	HaveGoal bool       `json:"have_goal"`
	Position [3]float64 `json:"position"`
	Goal     [3]float64 `json:"goal"`
}

func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flight := s.ctrl.Flight()
	resp := stateResponse{
		State:    s.ctrl.State(),
		HaveOdom: flight.HaveOdom,
		HaveGoal: flight.HaveGoal,
		Position: [3]float64{flight.Odom.Position.X, flight.Odom.Position.Y, flight.Odom.Position.Z},
		Goal:     [3]float64{flight.GoalPosition.X, flight.GoalPosition.Y, flight.GoalPosition.Z},
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		http.Error(w, "Failed to encode state", http.StatusInternalServerError)
	}
}

func (s *Server) plannerParams(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.tuning); err != nil {
		http.Error(w, "Failed to encode params", http.StatusInternalServerError)
	}
}

func (s *Server) listTransitions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	transitions, err := s.log.Transitions(100)
	if err != nil {
		msg := fmt.Sprintf("Failed to retrieve transitions: %v", err)
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}

	for _, tr := range transitions {
		_, err := w.Write([]byte(tr.String() + "\n"))
		if err != nil {
			http.Error(w, "Failed to write transition", http.StatusInternalServerError)
			return
		}
	}
}

func (s *Server) listTrajectories(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	msgs, err := s.log.Trajectories()
	if err != nil {
		msg := fmt.Sprintf("Failed to retrieve trajectories: %v", err)
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(msgs); err != nil {
		http.Error(w, "Failed to encode trajectories", http.StatusInternalServerError)
	}
}
