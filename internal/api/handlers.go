package api

import (
	"embed"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	gwebsocket "github.com/gorilla/websocket" // Alias to avoid name conflict

	"vroom-gateway/internal/data"
	"vroom-gateway/internal/torque"
	"vroom-gateway/internal/websocket"
)

//go:embed templates/*.html
var templateFS embed.FS

var upgrader = gwebsocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type APIHandler struct {
	receivers map[string]*torque.Receiver
	hub       *websocket.Hub
	tmpl      *template.Template
	logger    *slog.Logger
}

// NewAPIHandler serves one Torque endpoint per receiver. hub may be nil when
// the live view is not wanted.
func NewAPIHandler(receivers []*torque.Receiver, hub *websocket.Hub, logger *slog.Logger) (*APIHandler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}

	byVehicle := make(map[string]*torque.Receiver, len(receivers))
	for _, r := range receivers {
		byVehicle[r.Vehicle()] = r
	}

	return &APIHandler{
		receivers: byVehicle,
		hub:       hub,
		tmpl:      tmpl,
		logger:    logger.With("component", "api"),
	}, nil
}

func (h *APIHandler) receiver(w http.ResponseWriter, r *http.Request) (*torque.Receiver, bool) {
	rcv, ok := h.receivers[chi.URLParam(r, "vehicle")]
	if !ok {
		http.NotFound(w, r)
	}
	return rcv, ok
}

// HandleTorque receives one upload from the Torque app. Torque only looks for
// a 200 with the acknowledgement; a rejected e-mail gets an empty 200.
func (h *APIHandler) HandleTorque(w http.ResponseWriter, r *http.Request) {
	rcv, ok := h.receiver(w, r)
	if !ok {
		return
	}

	out, err := rcv.Receive(r.URL.Query())
	if err != nil {
		h.logger.Error("torque request failed", "vehicle", rcv.Vehicle(), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if out.Accepted {
		w.Write([]byte(torque.Ack))
	}
}

// HandleSensors returns the registry of a vehicle as JSON.
func (h *APIHandler) HandleSensors(w http.ResponseWriter, r *http.Request) {
	rcv, ok := h.receiver(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(rcv.Registry().Snapshot()); err != nil {
		h.logger.Error("encode sensors", "error", err)
	}
}

// HandleWebSocket upgrades connections and registers clients with the hub
func (h *APIHandler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if h.hub == nil {
		http.NotFound(w, r)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade", "error", err)
		return
	}

	client := websocket.NewClient(h.hub, conn)
	h.sendInitialData(client)
	h.hub.RegisterClient(client)

	go client.WritePump()
	go client.ReadPump()
}

type vehicleView struct {
	Name    string
	Path    string
	Sensors []*data.SensorRecord
}

func (h *APIHandler) vehicles() []vehicleView {
	views := make([]vehicleView, 0, len(h.receivers))
	for _, rcv := range h.receivers {
		views = append(views, vehicleView{Name: rcv.Vehicle(), Path: rcv.Path(), Sensors: rcv.Registry().Snapshot()})
	}
	sort.Slice(views, func(i, j int) bool { return views[i].Name < views[j].Name })
	return views
}

// ServeWebUI serves the main HTML page
func (h *APIHandler) ServeWebUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.tmpl.ExecuteTemplate(w, "index.html", h.vehicles()); err != nil {
		h.logger.Error("execute template", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
	}
}

// sendInitialData queues every known sensor for a new client before it is
// registered, so the snapshot is the first frame it gets.
func (h *APIHandler) sendInitialData(client *websocket.Client) {
	var sensors []*data.SensorRecord
	for _, v := range h.vehicles() {
		sensors = append(sensors, v.Sensors...)
	}
	if len(sensors) == 0 {
		return
	}

	messageBytes, err := websocket.Encode(websocket.TypeHistory, sensors)
	if err != nil {
		h.logger.Error("marshal history", "error", err)
		return
	}

	select {
	case client.Send <- messageBytes:
	case <-time.After(5 * time.Second):
		h.logger.Warn("timeout sending history", "remote", client.RemoteAddr())
	}
}
