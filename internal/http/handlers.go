package httpapi

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/epickup-dispatch/internal/dispatch"
	"github.com/example/epickup-dispatch/internal/geo"
	"github.com/example/epickup-dispatch/internal/ingest"
	"github.com/example/epickup-dispatch/internal/match"
	"github.com/example/epickup-dispatch/internal/models"
	"github.com/example/epickup-dispatch/internal/observability"
	"github.com/example/epickup-dispatch/internal/payments"
)

// Options bundles the collaborators the server needs. Kafka and Payments may
// be nil when not configured.
type Options struct {
	Coordinator *match.Coordinator
	Geo         geo.Store
	Kafka       *ingest.KafkaProducer
	WSReg       *dispatch.WSRegistry
	Broker      *dispatch.Broker
	Payments    *payments.StripeClient
	FeeCents    int64
	FeeCurrency string
	Logger      *slog.Logger
}

type Server struct {
	coordinator *match.Coordinator
	geo         geo.Store
	kafka       *ingest.KafkaProducer
	wsreg       *dispatch.WSRegistry
	broker      *dispatch.Broker
	payments    *payments.StripeClient
	feeCents    int64
	feeCurrency string
	logger      *slog.Logger
	mux         *mux.Router
}

func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	s := &Server{
		coordinator: opts.Coordinator,
		geo:         opts.Geo,
		kafka:       opts.Kafka,
		wsreg:       opts.WSReg,
		broker:      opts.Broker,
		payments:    opts.Payments,
		feeCents:    opts.FeeCents,
		feeCurrency: opts.FeeCurrency,
		logger:      opts.Logger,
		mux:         mux.NewRouter(),
	}
	s.registerMiddleware()
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/v1/bookings/match", s.handleMatch).Methods("POST")
	s.mux.HandleFunc("/api/v1/bookings/{booking_id}/cancel", s.handleCancel).Methods("POST")
	s.mux.HandleFunc("/internal/driver/locations", s.handleDriverLocation).Methods("POST")
	s.mux.HandleFunc("/internal/drivers/{driver_id}/release", s.handleDriverRelease).Methods("POST")
	s.mux.HandleFunc("/ws/driver/{driver_id}", s.handleDriverWS)
	s.mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); w.Write([]byte("ok")) }).Methods("GET")
	s.mux.Handle("/metrics", promhttp.Handler())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleMatch(w http.ResponseWriter, r *http.Request) {
	var b models.BookingRequest
	if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if b.ID == "" {
		b.ID = newID()
	}

	res, err := s.coordinator.Match(r.Context(), b)
	if err != nil {
		s.writeMatchError(w, b.ID, err)
		return
	}

	resp := map[string]any{"booking_id": b.ID, "result": res}
	if s.payments != nil && res.DriverID != "" {
		piID, err := s.payments.HoldDeliveryFee(r.Context(), s.feeCents, s.feeCurrency, "")
		if err != nil {
			// The match stands; the fee hold is retried by the payment
			// reconciliation job.
			s.logger.Warn("delivery fee hold failed", "booking_id", b.ID, "error", err)
		} else {
			resp["payment_intent_id"] = piID
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) writeMatchError(w http.ResponseWriter, bookingID string, err error) {
	switch {
	case errors.Is(err, match.ErrInvalidBooking):
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": err.Error()})
	case errors.Is(err, match.ErrMatchInProgress):
		writeJSON(w, http.StatusConflict, map[string]any{"error": err.Error()})
	default:
		var f *match.Failure
		if errors.As(err, &f) {
			status := http.StatusServiceUnavailable
			if f.Reason == match.ReasonCancelled {
				status = http.StatusConflict
			}
			writeJSON(w, status, map[string]any{
				"booking_id": bookingID,
				"reason":     f.Reason,
				"attempted":  f.Attempted,
			})
			return
		}
		s.logger.Error("match failed", "booking_id", bookingID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	bookingID := mux.Vars(r)["booking_id"]
	if !s.coordinator.Cancel(bookingID) {
		http.Error(w, "no in-flight match for booking", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"booking_id": bookingID, "status": "cancelling"})
}

func (s *Server) handleDriverLocation(w http.ResponseWriter, r *http.Request) {
	var d models.DriverUpdate
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if d.DriverID == "" || !d.Location.Valid() {
		http.Error(w, "driver_id and a valid location are required", http.StatusBadRequest)
		return
	}
	// A location ping means the driver is on shift.
	d.Available = true
	if s.kafka != nil {
		if err := s.kafka.PublishUpdate(d); err != nil {
			s.logger.Warn("kafka publish failed", "driver_id", d.DriverID, "error", err)
		}
	}
	if err := s.geo.Upsert(r.Context(), d); err != nil {
		s.logger.Error("geo upsert failed", "driver_id", d.DriverID, "error", err)
		http.Error(w, "location store unavailable", http.StatusServiceUnavailable)
		return
	}
	observability.DriversOnline.Inc()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDriverRelease(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]
	s.coordinator.Release(driverID)
	w.WriteHeader(http.StatusNoContent)
}

var upgrader = websocket.Upgrader{}

// handleDriverWS registers a driver session, then pumps accept/decline frames
// from the connection into the response broker until the socket drops.
func (s *Server) handleDriverWS(w http.ResponseWriter, r *http.Request) {
	driverID := mux.Vars(r)["driver_id"]
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, "upgrade failed", http.StatusBadRequest)
		return
	}
	s.wsreg.Add(driverID, conn)
	defer func() {
		s.wsreg.Remove(driverID)
		_ = conn.Close()
	}()

	for {
		var resp models.DriverResponse
		if err := conn.ReadJSON(&resp); err != nil {
			s.logger.Info("driver websocket closed", "driver_id", driverID, "error", err)
			return
		}
		resp.DriverID = driverID // never trust the frame's driver id
		s.broker.Publish(resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newID() string { b := make([]byte, 8); _, _ = rand.Read(b); return hex.EncodeToString(b) }
