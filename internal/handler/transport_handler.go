package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/antigravity/transit-router/internal/csa"
	"github.com/antigravity/transit-router/internal/journey"
	"github.com/antigravity/transit-router/internal/network"
	"github.com/antigravity/transit-router/internal/raptor"
	"github.com/antigravity/transit-router/internal/repository"
)

// TransportHandler exposes the read-model repository and a live routing network over HTTP.
// Net is built once at startup (see main.go) and is not mutated while requests are
// served.
type TransportHandler struct {
	Repo *repository.LineRepository
	Net  *network.Network
}

func NewTransportHandler(repo *repository.LineRepository, net *network.Network) *TransportHandler {
	return &TransportHandler{Repo: repo, Net: net}
}

func (h *TransportHandler) GetAllLines(w http.ResponseWriter, r *http.Request) {
	lines, err := h.Repo.GetAllLines(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(lines)
}

func (h *TransportHandler) GetLineDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	line, stops, err := h.Repo.GetLineDetails(r.Context(), id)
	if err != nil {
		if repository.IsNoRows(err) {
			http.Error(w, "line not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	json.NewEncoder(w).Encode(map[string]any{"line": line, "stops": stops})
}

func (h *TransportHandler) GetStops(w http.ResponseWriter, r *http.Request) {
	minLat, _ := strconv.ParseFloat(r.URL.Query().Get("min_lat"), 64)
	minLon, _ := strconv.ParseFloat(r.URL.Query().Get("min_lon"), 64)
	maxLat, _ := strconv.ParseFloat(r.URL.Query().Get("max_lat"), 64)
	maxLon, _ := strconv.ParseFloat(r.URL.Query().Get("max_lon"), 64)

	if minLat == 0 || maxLat == 0 {
		http.Error(w, "missing viewport coordinates", http.StatusBadRequest)
		return
	}

	stops, err := h.Repo.GetStopsInViewport(r.Context(), minLat, minLon, maxLat, maxLon)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(stops)
}

func (h *TransportHandler) GetStopDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	stop, lines, err := h.Repo.GetStopDetails(r.Context(), id)
	if err != nil {
		if repository.IsNoRows(err) {
			http.Error(w, "stop not found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	json.NewEncoder(w).Encode(map[string]any{"stop": stop, "lines": lines})
}

// GetRoute plans a journey between two coordinates. It resolves each side to its nearest
// network stop, then dispatches to one of the three scanners by the ?algo= parameter
// (raptor, mcraptor, csa — raptor is the default). A correlation ID is generated per
// request and included in the log line; a successful response also carries it, in the
// X-Request-Id header and the request_id field. Error responses do not include it.
func (h *TransportHandler) GetRoute(w http.ResponseWriter, r *http.Request) {
	requestID := uuid.NewString()

	fromLat, errA := strconv.ParseFloat(r.URL.Query().Get("from_lat"), 64)
	fromLon, errB := strconv.ParseFloat(r.URL.Query().Get("from_lon"), 64)
	toLat, errC := strconv.ParseFloat(r.URL.Query().Get("to_lat"), 64)
	toLon, errD := strconv.ParseFloat(r.URL.Query().Get("to_lon"), 64)
	if errA != nil || errB != nil || errC != nil || errD != nil {
		http.Error(w, "missing or invalid source/destination coordinates", http.StatusBadRequest)
		return
	}

	departureTime := network.Timestamp(8*3600 + 30*60) // default: 08:30
	if timeParam := r.URL.Query().Get("time"); timeParam != "" {
		if parsed, err := strconv.Atoi(timeParam); err == nil && parsed >= 0 {
			departureTime = network.Timestamp(parsed)
		}
	}

	start, ok := h.nearestStop(fromLat, fromLon)
	if !ok {
		http.Error(w, "no stop found near the source coordinates", http.StatusNotFound)
		return
	}
	end, ok := h.nearestStop(toLat, toLon)
	if !ok {
		http.Error(w, "no stop found near the destination coordinates", http.StatusNotFound)
		return
	}

	algo := r.URL.Query().Get("algo")
	var j journey.Journey
	var err error
	switch algo {
	case "csa":
		j, err = csa.Query(h.Net, start, end, departureTime)
	case "mcraptor":
		costs := make([]float64, len(h.Net.StopTimes))
		j, err = raptor.MultiCriterionQuery(h.Net, start, end, departureTime, costs, journey.DefaultPreferences())
	default:
		j, err = raptor.Query(h.Net, start, end, departureTime)
	}

	log.Printf("request=%s algo=%q from=(%f,%f) to=(%f,%f) time=%d legs=%d err=%v",
		requestID, algo, fromLat, fromLon, toLat, toLon, departureTime, len(j.Legs), err)

	if err != nil {
		if errors.Is(err, journey.ErrNoJourneyFound) {
			http.Error(w, "no route found", http.StatusNotFound)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("X-Request-Id", requestID)
	json.NewEncoder(w).Encode(journeyResponse(requestID, j))
}

type legDTO struct {
	FromStop  string `json:"from_stop"`
	ToStop    string `json:"to_stop"`
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	Line      string `json:"line"`
}

type journeyDTO struct {
	RequestID       string   `json:"request_id"`
	DurationSeconds int      `json:"duration_seconds"`
	Cost            float64  `json:"cost,omitempty"`
	Legs            []legDTO `json:"legs"`
}

// journeyResponse flattens a Journey into a serializable shape. The Journey itself holds
// a back-reference to the whole Network and must never be encoded directly.
func journeyResponse(requestID string, j journey.Journey) journeyDTO {
	dto := journeyDTO{
		RequestID:       requestID,
		DurationSeconds: int(j.Duration()),
		Cost:            j.Cost,
		Legs:            make([]legDTO, 0, len(j.Legs)),
	}
	for _, leg := range j.Legs {
		dto.Legs = append(dto.Legs, legDTO{
			FromStop:  j.Network.GetStop(leg.BoardedStop).Name,
			ToStop:    j.Network.GetStop(leg.ArrivalStop).Name,
			Departure: network.FormatTime(leg.BoardedTime),
			Arrival:   network.FormatTime(leg.ArrivalTime),
			Line:      j.Network.Routes[leg.Route].Line,
		})
	}
	return dto
}

// nearestStop does a linear scan over the network's stops. A production-scale deployment
// would push this down to PostGIS (as GetStopsInViewport does for rough candidate sets);
// this scans the already-loaded Network directly so the routing dispatch above needs no
// repository round-trip per request.
func (h *TransportHandler) nearestStop(lat, lon float64) (network.StopIndex, bool) {
	query := network.Point{Latitude: lat, Longitude: lon}
	best := -1
	bestDist := 0.0
	for i := range h.Net.Stops {
		d := h.Net.Stops[i].Point.DistanceKM(query)
		if best == -1 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	if best == -1 {
		return 0, false
	}
	return network.StopIndex(best), true
}
