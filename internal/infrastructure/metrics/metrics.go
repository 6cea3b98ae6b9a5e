package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics colectores Prometheus del motor de traslados, el historial, el bus y la capa HTTP.
type Metrics struct {
	movements          *prometheus.CounterVec
	capacityRejections *prometheus.CounterVec
	auditWrites        *prometheus.CounterVec
	strandedClosures   *prometheus.CounterVec
	busDeliveries      *prometheus.CounterVec
	busLatency         *prometheus.HistogramVec
	httpRequests       *prometheus.CounterVec
	httpLatency        *prometheus.HistogramVec
}

// New crea los colectores y los registra en reg (prometheus.DefaultRegisterer en producción,
// un registro nuevo en pruebas).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		movements: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bodegas_product_movements_total",
				Help: "Movimientos de productos confirmados por tipo",
			},
			[]string{"kind"},
		),
		capacityRejections: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bodegas_capacity_rejections_total",
				Help: "Movimientos rechazados por falta de capacidad",
			},
			[]string{"warehouse_id"},
		),
		auditWrites: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bodegas_history_writes_total",
				Help: "Escrituras del historial por tipo y resultado",
			},
			[]string{"kind", "status"},
		),
		strandedClosures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bodegas_closure_transfers_failed_total",
				Help: "Cierres de bodega cuyo traslado por lotes agotó los reintentos",
			},
			[]string{"warehouse_id"},
		),
		busDeliveries: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bodegas_eventbus_deliveries_total",
				Help: "Entregas del bus de eventos por tópico, suscriptor y resultado",
			},
			[]string{"topic", "subscriber", "outcome"},
		),
		busLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bodegas_eventbus_delivery_duration_seconds",
				Help:    "Duración de cada entrega del bus de eventos",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"topic"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bodegas_http_requests_total",
				Help: "Peticiones HTTP por método, ruta y código",
			},
			[]string{"method", "route", "status"},
		),
		httpLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "bodegas_http_request_duration_seconds",
				Help:    "Duración de las peticiones HTTP",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}

	reg.MustRegister(
		m.movements,
		m.capacityRejections,
		m.auditWrites,
		m.strandedClosures,
		m.busDeliveries,
		m.busLatency,
		m.httpRequests,
		m.httpLatency,
	)
	return m
}

// MovementRecorded suma unidades movidas por tipo.
func (m *Metrics) MovementRecorded(kind string, units int) {
	m.movements.WithLabelValues(kind).Add(float64(units))
}

// CapacityRejected cuenta un rechazo del oráculo.
func (m *Metrics) CapacityRejected(warehouseID string) {
	m.capacityRejections.WithLabelValues(warehouseID).Inc()
}

// AuditRecorded cuenta una escritura exitosa del historial.
func (m *Metrics) AuditRecorded(kind string) {
	m.auditWrites.WithLabelValues(kind, "ok").Inc()
}

// AuditFailed cuenta una escritura fallida del historial.
func (m *Metrics) AuditFailed(kind string) {
	m.auditWrites.WithLabelValues(kind, "error").Inc()
}

// ClosureStranded cuenta un cierre que quedó con productos sin trasladar.
func (m *Metrics) ClosureStranded(warehouseID string) {
	m.strandedClosures.WithLabelValues(warehouseID).Inc()
}

// EventDelivered registra una entrega del bus.
func (m *Metrics) EventDelivered(topic, subscriber, outcome string, elapsed time.Duration) {
	m.busDeliveries.WithLabelValues(topic, subscriber, outcome).Inc()
	m.busLatency.WithLabelValues(topic).Observe(elapsed.Seconds())
}

// HTTPRequest registra una petición atendida.
func (m *Metrics) HTTPRequest(method, route, status string, elapsed time.Duration) {
	m.httpRequests.WithLabelValues(method, route, status).Inc()
	m.httpLatency.WithLabelValues(method, route).Observe(elapsed.Seconds())
}
