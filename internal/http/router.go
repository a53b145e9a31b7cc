package httpapi

import (
	"net/http"
	"sort"
	"strings"

	"github.com/ChanGu3/ImpairedNavigationApp-CPTS484/internal/authz"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Router 使用标准库 http.ServeMux，路由按路径注册、在 handler 内按方法分发
type Router struct {
	mux     *http.ServeMux
	origins map[string]bool
	logger  *zap.Logger
}

func NewRouter(allowedOrigins []string, logger *zap.Logger) *Router {
	origins := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins[o] = true
		}
	}
	return &Router{
		mux:     http.NewServeMux(),
		origins: origins,
		logger:  logger,
	}
}

// handlerFunc receives the caller as resolved by the route's guards.
type handlerFunc func(w http.ResponseWriter, r *http.Request, c *authz.Caller)

// endpoint is one method of a route. A nil guard admits everyone.
type endpoint struct {
	guard  authz.Guard
	handle handlerFunc
}

type methods map[string]endpoint

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

func (r *Router) route(pattern string, m methods) {
	r.mux.HandleFunc(pattern, r.dispatch(m))
}

// dispatch picks the endpoint by method. Guards run before the handler; a
// failing guard ends the request. OPTIONS preflight runs the guard of the
// requested method as a preflight caller and answers 204.
func (r *Router) dispatch(m methods) http.HandlerFunc {
	allow := make([]string, 0, len(m)+1)
	for method := range m {
		allow = append(allow, method)
	}
	allow = append(allow, http.MethodOptions)
	sort.Strings(allow)
	allowHeader := strings.Join(allow, ", ")

	return func(w http.ResponseWriter, req *http.Request) {
		if req.Method == http.MethodOptions {
			if ep, ok := m[req.Header.Get("Access-Control-Request-Method")]; ok && ep.guard != nil {
				if err := ep.guard(req.Context(), &authz.Caller{Preflight: true}); err != nil {
					writeError(w, req, r.logger, err)
					return
				}
			}
			w.Header().Set("Allow", allowHeader)
			w.WriteHeader(http.StatusNoContent)
			return
		}

		ep, ok := m[req.Method]
		if !ok {
			w.Header().Set("Allow", allowHeader)
			writeJSON(w, http.StatusMethodNotAllowed, Fail("method not allowed"))
			return
		}
		caller := &authz.Caller{Token: sessionToken(req)}
		if ep.guard != nil {
			if err := ep.guard(req.Context(), caller); err != nil {
				writeError(w, req, r.logger, err)
				return
			}
		}
		ep.handle(w, req, caller)
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	requestID := req.Header.Get("X-Request-ID")
	if requestID == "" {
		requestID = uuid.NewString()
	}
	w.Header().Set("X-Request-ID", requestID)

	if origin := req.Header.Get("Origin"); origin != "" && r.origins[origin] {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Allow-Credentials", "true")
		h.Add("Vary", "Origin")
		if req.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type, X-Request-ID")
			h.Set("Access-Control-Max-Age", "600")
		}
	}
	r.mux.ServeHTTP(w, req)
}

// RegisterHealthRoutes liveness
func (r *Router) RegisterHealthRoutes() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		if req.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		writeJSON(w, http.StatusOK, Ok("ok"))
	})
}
