// Package admin exposes a small HTTP surface to inspect and drive the
// safety coordinators: trigger or resolve alerts, start or stop route
// tracking, and read current status.
package admin

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"strings"

	"safewalk/internal/emergency"
	"safewalk/internal/location"
	"safewalk/internal/route"
)

// AlertLog is the read surface for archived alerts.
type AlertLog interface {
	RecentAlerts(ctx context.Context, limit int) ([]emergency.Alert, error)
}

type Server struct {
	Coord   *emergency.Coordinator
	Tracker *route.Tracker
	Feed    *location.Feed
	Log     AlertLog

	tpl *template.Template
	mux *http.ServeMux
}

//go:embed templates/index.html
var content embed.FS

func NewServer(coord *emergency.Coordinator, tracker *route.Tracker, feed *location.Feed, log AlertLog) *Server {
	tpl := template.Must(template.New("index.html").ParseFS(content, "templates/index.html"))
	s := &Server{Coord: coord, Tracker: tracker, Feed: feed, Log: log, tpl: tpl}
	s.routes()
	return s
}

func (s *Server) routes() {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/alerts/recent", s.handleRecentAlerts)
	mux.HandleFunc("/alert/trigger", s.handleTrigger)
	mux.HandleFunc("/alert/cancel", s.handleCancel)
	mux.HandleFunc("/alert/resolve", s.handleResolve)
	mux.HandleFunc("/route/start", s.handleRouteStart)
	mux.HandleFunc("/route/stop", s.handleRouteStop)
	mux.HandleFunc("/route/waypoint", s.handleWaypoint)
	mux.HandleFunc("/route/stats", s.handleRouteStats)
	s.mux = mux
}

func (s *Server) Start(addr string) error {
	return http.ListenAndServe(addr, s.mux)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// statusView is the JSON shape of /status.
type statusView struct {
	Alert     *emergency.Alert   `json:"alert,omitempty"`
	Countdown int                `json:"countdown_remaining,omitempty"`
	Route     *route.Route       `json:"route,omitempty"`
	Stats     *route.Stats       `json:"route_stats,omitempty"`
	Location  *location.Location `json:"last_location,omitempty"`
	Tracking  bool               `json:"tracking"`
}

func (s *Server) status() statusView {
	return statusView{
		Alert:     s.Coord.ActiveAlert(),
		Countdown: s.Coord.CountdownRemaining(),
		Route:     s.Tracker.ActiveRoute(),
		Stats:     s.Tracker.Statistics(),
		Location:  s.Feed.LastKnown(),
		Tracking:  s.Feed.Tracking(),
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.tpl.Execute(w, s.status())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.status())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleRecentAlerts(w http.ResponseWriter, r *http.Request) {
	if s.Log == nil {
		writeJSON(w, []emergency.Alert{})
		return
	}
	alerts, err := s.Log.RecentAlerts(r.Context(), 0)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if alerts == nil {
		alerts = []emergency.Alert{}
	}
	writeJSON(w, alerts)
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	typ := emergency.Type(r.URL.Query().Get("type"))
	if typ == "" {
		typ = emergency.TypeSOS
	}
	skip := r.URL.Query().Get("skip_countdown") == "1"
	alert := s.Coord.Trigger(r.Context(), typ, r.URL.Query().Get("message"), skip)
	if alert == nil {
		http.Error(w, "alert not triggered", http.StatusConflict)
		return
	}
	writeJSON(w, alert)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	if !s.Coord.CancelCountdown() {
		http.Error(w, "no countdown running", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	if !s.Coord.Resolve(r.Context(), r.URL.Query().Get("id")) {
		http.Error(w, "no matching active alert", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRouteStart(w http.ResponseWriter, r *http.Request) {
	var share []string
	if raw := r.URL.Query().Get("share"); raw != "" {
		share = strings.Split(raw, ",")
	}
	rt := s.Tracker.Start(r.Context(), r.URL.Query().Get("destination"), share)
	if rt == nil {
		http.Error(w, "route not started", http.StatusConflict)
		return
	}
	writeJSON(w, rt)
}

func (s *Server) handleRouteStop(w http.ResponseWriter, r *http.Request) {
	if !s.Tracker.Stop(r.Context()) {
		http.Error(w, "no active route", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleWaypoint(w http.ResponseWriter, r *http.Request) {
	if !s.Tracker.AddWaypoint(r.Context(), nil) {
		http.Error(w, "no active route or location", http.StatusConflict)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRouteStats(w http.ResponseWriter, r *http.Request) {
	stats := s.Tracker.Statistics()
	if stats == nil {
		http.Error(w, "no active route", http.StatusNotFound)
		return
	}
	writeJSON(w, stats)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
