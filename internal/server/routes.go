package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/cqlkit/cqlmap/internal/core"
	"github.com/cqlkit/cqlmap/internal/cql"
	"github.com/cqlkit/cqlmap/internal/logging"
	"github.com/cqlkit/cqlmap/internal/mapping"
	"github.com/cqlkit/cqlmap/internal/query"
)

// Options wires the handlers to the mapping layer
type Options struct {
	// Template derives queries; a dry-run template is enough
	Template *core.Template
	// Resolver answers /types lookups; nil reports 503
	Resolver mapping.UserTypeResolver
	// Gatherer backs /metrics; nil leaves the route unmounted
	Gatherer prometheus.Gatherer
	Logger   *zap.Logger
}

type handlers struct {
	template *core.Template
	resolver mapping.UserTypeResolver
	logger   *zap.Logger
}

// NewRouter builds the diagnostics routes
func NewRouter(opts Options) (http.Handler, error) {
	if opts.Template == nil {
		return nil, errors.New("template cannot be nil")
	}
	logger := logging.OrNop(opts.Logger)
	h := &handlers{template: opts.Template, resolver: opts.Resolver, logger: logger}

	r := chi.NewRouter()
	r.Use(RequestID, Recovery(logger), Logging(logger))

	r.Get("/healthz", h.health)
	if opts.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{}))
	}
	r.Get("/types/{name}", h.userType)
	r.Get("/entities", h.entities)
	r.Get("/entities/{entity}/queries/{method}", h.deriveQuery)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, http.StatusNotFound, "not_found", "no route for "+r.URL.Path, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		renderError(w, http.StatusMethodNotAllowed, "method_not_allowed", r.Method+" is not allowed on "+r.URL.Path, nil)
	})
	return r, nil
}

func (h *handlers) health(w http.ResponseWriter, _ *http.Request) {
	renderJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type userTypeResponse struct {
	Keyspace string   `json:"keyspace"`
	Name     string   `json:"name"`
	Fields   []string `json:"fields"`
}

func (h *handlers) userType(w http.ResponseWriter, r *http.Request) {
	if h.resolver == nil {
		renderError(w, http.StatusServiceUnavailable, "no_cluster", "user type lookups need a cluster connection", nil)
		return
	}

	name, err := cql.Of(chi.URLParam(r, "name"))
	if err != nil {
		renderError(w, http.StatusBadRequest, "invalid_identifier", err.Error(), nil)
		return
	}

	udt, found, err := h.resolver.ResolveType(name)
	if err != nil {
		h.logger.Warn("user type lookup failed", zap.String("type", name.ToCql()), zap.Error(err))
		renderError(w, http.StatusBadGateway, "metadata_unavailable", err.Error(), nil)
		return
	}
	if !found {
		renderError(w, http.StatusNotFound, "user_type_not_found", "user type "+name.ToCql()+" does not exist", nil)
		return
	}

	renderJSON(w, http.StatusOK, userTypeResponse{
		Keyspace: udt.Keyspace,
		Name:     udt.Name,
		Fields:   udt.FieldNames,
	})
}

type entityResponse struct {
	Name     string `json:"name"`
	Table    string `json:"table"`
	UserType bool   `json:"user_type"`
}

func (h *handlers) entities(w http.ResponseWriter, _ *http.Request) {
	mc := h.template.MappingContext()
	var out []entityResponse
	for _, e := range append(mc.UserTypes(), mc.Entities()...) {
		out = append(out, entityResponse{
			Name:     e.Name(),
			Table:    e.TableName().ToCql(),
			UserType: e.IsUserDefinedType(),
		})
	}
	if out == nil {
		out = []entityResponse{}
	}
	renderJSON(w, http.StatusOK, out)
}

func (h *handlers) deriveQuery(w http.ResponseWriter, r *http.Request) {
	entity := chi.URLParam(r, "entity")
	method := chi.URLParam(r, "method")
	params := r.URL.Query()
	filtering := params.Get("allow_filtering") == "true"

	plan, err := h.template.Derive(entity, method, params["arg"], filtering)
	if err != nil {
		h.renderDeriveError(w, entity, method, err)
		return
	}
	renderJSON(w, http.StatusOK, plan.Describe())
}

func (h *handlers) renderDeriveError(w http.ResponseWriter, entity, method string, err error) {
	if cause, ok := query.CauseOf(err); ok {
		details := map[string]interface{}{"method": method, "cause": cause.String()}
		if prop, ok := query.UnknownProperty(err); ok {
			details["property"] = prop
		}
		renderError(w, http.StatusUnprocessableEntity, "query_creation_failed", err.Error(), details)
		return
	}

	switch {
	case errors.Is(err, mapping.ErrEntityNotFound):
		renderError(w, http.StatusNotFound, "entity_not_found", "entity "+entity+" is not mapped", nil)
	case errors.Is(err, query.ErrInvalidParameter):
		renderError(w, http.StatusBadRequest, "invalid_parameter", err.Error(), nil)
	default:
		h.logger.Error("query derivation failed", zap.String("entity", entity), zap.String("method", method), zap.Error(err))
		renderError(w, http.StatusInternalServerError, "internal_server_error", err.Error(), nil)
	}
}
