package ml

import (
	"context"
	"errors"
	"net/http"
	"time"

	"book-predictor/internal/features"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	// KindBadRequest labels request bodies that are not a JSON object.
	KindBadRequest = "bad_request"

	maxBodyBytes = 1 << 20
)

// HTTPMetrics records per-route response codes.
type HTTPMetrics interface {
	HTTPRequestInc(route string, code int)
}

// ServerOptions configures NewModelServer.
type ServerOptions struct {
	Addr           string
	CORSOrigins    []string
	RateLimit      int // requests per minute per IP, 0 disables
	RequestTimeout time.Duration
	Metrics        HTTPMetrics
	MetricsHandler http.Handler // mounted at /metrics when set
}

// ModelServer provides HTTP API for model predictions
type ModelServer struct {
	service *Service
	opts    ServerOptions
	handler http.Handler
	server  *http.Server
}

// PredictionResponse is the success envelope of /api/predict.
type PredictionResponse struct {
	Prediction float64 `json:"prediction"`
	Success    bool    `json:"success"`
}

// ErrorResponse is the failure envelope shared by all endpoints.
type ErrorResponse struct {
	Error   string `json:"error"`
	Kind    string `json:"kind,omitempty"`
	Field   string `json:"field,omitempty"`
	Success bool   `json:"success"`
}

// HealthResponse is returned by /api/health.
type HealthResponse struct {
	Status        string `json:"status"`
	ModelLoaded   bool   `json:"model_loaded"`
	ModelState    string `json:"model_state,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	Columns       int    `json:"columns"`
}

// ModelInfo is returned by /api/model/info.
type ModelInfo struct {
	Model         string   `json:"model"`
	SchemaVersion string   `json:"schema_version"`
	TrainedAt     string   `json:"trained_at,omitempty"`
	Target        string   `json:"target,omitempty"`
	Columns       []string `json:"columns"`
}

// NewModelServer creates a new HTTP server for model serving. A nil service
// is allowed; predictions then fail with 503 and health reports
// model_loaded=false.
func NewModelServer(service *Service, opts ServerOptions) *ModelServer {
	if opts.Addr == "" {
		opts.Addr = ":5000"
	}
	if len(opts.CORSOrigins) == 0 {
		opts.CORSOrigins = []string{"*"}
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}

	ms := &ModelServer{service: service, opts: opts}
	ms.handler = ms.routes()
	ms.server = &http.Server{
		Addr:         opts.Addr,
		Handler:      ms.handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: opts.RequestTimeout + 5*time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return ms
}

func (ms *ModelServer) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(ms.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: ms.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", ms.handleHealth)
		r.Get("/model/info", ms.handleModelInfo)

		r.Group(func(r chi.Router) {
			if ms.opts.RateLimit > 0 {
				r.Use(httprate.LimitByIP(ms.opts.RateLimit, time.Minute))
			}
			r.Post("/predict", ms.handlePredict)
		})
	})

	if ms.opts.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", ms.opts.MetricsHandler)
	}

	return r
}

// Handler returns the routed handler, for tests and embedding.
func (ms *ModelServer) Handler() http.Handler {
	return ms.handler
}

// Start begins serving HTTP requests
func (ms *ModelServer) Start() error {
	log.Info().Str("addr", ms.server.Addr).Msg("starting model server")
	return ms.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (ms *ModelServer) Shutdown(ctx context.Context) error {
	return ms.server.Shutdown(ctx)
}

func (ms *ModelServer) handlePredict(w http.ResponseWriter, r *http.Request) {
	if ms.service == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "model not loaded",
			Kind:  string(features.KindSchemaUnavailable),
		})
		return
	}

	// numeric literals reach the encoder unparsed
	var rec features.RawRecord
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid JSON body: " + err.Error(), Kind: KindBadRequest})
		return
	}
	if rec == nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "request body must be a JSON object", Kind: KindBadRequest})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), ms.opts.RequestTimeout)
	defer cancel()

	prediction, err := ms.service.Predict(ctx, rec)
	if err != nil {
		status, resp := errorResponse(err)
		ev := log.Warn()
		if status >= http.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Err(err).
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("kind", resp.Kind).
			Msg("prediction failed")
		writeJSON(w, status, resp)
		return
	}

	writeJSON(w, http.StatusOK, PredictionResponse{Prediction: prediction, Success: true})
}

// errorResponse maps a prediction error to a status code and envelope.
func errorResponse(err error) (int, ErrorResponse) {
	var fe *features.Error
	if errors.As(err, &fe) {
		resp := ErrorResponse{Error: fe.Error(), Kind: string(fe.Kind), Field: fe.Field}
		if fe.Kind == features.KindSchemaUnavailable {
			return http.StatusServiceUnavailable, resp
		}
		return http.StatusBadRequest, resp
	}
	if errors.Is(err, ErrModelUnavailable) {
		return http.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Kind: KindModel}
	}
	if errors.Is(err, ErrModelTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout, ErrorResponse{Error: err.Error(), Kind: KindModel}
	}
	return http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Kind: KindModel}
}

func (ms *ModelServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{Status: "ok", ModelLoaded: ms.service != nil}
	if ms.service != nil {
		resp.SchemaVersion = ms.service.Schema().Version()
		resp.Columns = ms.service.Schema().Len()
		if st, ok := ms.service.Model().(interface{ State() string }); ok {
			resp.ModelState = st.State()
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (ms *ModelServer) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	if ms.service == nil {
		writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{
			Error: "model not loaded",
			Kind:  string(features.KindSchemaUnavailable),
		})
		return
	}

	schema := ms.service.Schema()
	info := ModelInfo{
		Model:         ms.service.Model().Name(),
		SchemaVersion: schema.Version(),
		Target:        schema.Target(),
		Columns:       schema.Columns(),
	}
	if !schema.TrainedAt().IsZero() {
		info.TrainedAt = schema.TrainedAt().UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, info)
}

// requestID assigns a UUID request id when the caller did not send one,
// then hands over to chi's RequestID so handlers can read it back.
func requestID(next http.Handler) http.Handler {
	withID := chimiddleware.RequestID(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(chimiddleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(chimiddleware.RequestIDHeader, id)
		}
		w.Header().Set(chimiddleware.RequestIDHeader, id)
		withID.ServeHTTP(w, r)
	})
}

func (ms *ModelServer) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		if ms.opts.Metrics != nil {
			ms.opts.Metrics.HTTPRequestInc(route, status)
		}

		log.Debug().
			Str("request_id", chimiddleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("route", route).
			Int("status", status).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Msg("request")
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write response")
	}
}
