// Package fakeapi is an in-process stand-in for the remote Weeb API, used by tests. It
// issues opaque counter tokens ("tok1", "ref1", ...) by default, or signed JWT access
// tokens with WithJWTAccessTokens.
package fakeapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/weeb-client/apimodel"
	"github.com/jrsteele09/weeb-client/content"
	"github.com/jrsteele09/weeb-client/users"
)

type account struct {
	profile      users.Profile
	passwordHash string
}

// Server is a running fake API.
type Server struct {
	URL string

	srv    *httptest.Server
	router *mux.Router

	lock          sync.Mutex
	accounts      map[string]*account // keyed by email
	access        map[string]string   // valid access token -> email
	refresh       map[string]string   // valid refresh token -> email
	nextUserID    int64
	accessSeq     int
	refreshSeq    int
	rotate        bool
	jwtSecret     []byte
	accessTTL     time.Duration
	refreshGate   chan struct{}
	logoutStatus  int
	calls         map[string]int
	authHeaders   map[string][]string
	categories    []content.Category
	articles      []*content.Article
	nextArticleID int64
	reviews       []content.Review
}

// Option defines a function type to modify the Server instance.
type Option func(*Server)

// WithRotation makes every successful refresh issue a new refresh token and revoke the
// presented one.
func WithRotation() Option {
	return func(s *Server) {
		s.rotate = true
	}
}

// WithJWTAccessTokens issues HS256-signed JWT access tokens valid for ttl.
func WithJWTAccessTokens(secret []byte, ttl time.Duration) Option {
	return func(s *Server) {
		s.jwtSecret = secret
		s.accessTTL = ttl
	}
}

// WithRefreshGate holds every refresh request until gate is closed.
func WithRefreshGate(gate chan struct{}) Option {
	return func(s *Server) {
		s.refreshGate = gate
	}
}

// New starts a fake API that is shut down when the test ends.
func New(t testing.TB, options ...Option) *Server {
	t.Helper()

	s := &Server{
		router:      mux.NewRouter(),
		accounts:    make(map[string]*account),
		access:      make(map[string]string),
		refresh:     make(map[string]string),
		calls:       make(map[string]int),
		authHeaders: make(map[string][]string),
		categories:  []content.Category{{ID: 1, Name: "News"}, {ID: 2, Name: "Reviews"}},
	}
	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.srv = httptest.NewServer(s.router)
	s.URL = s.srv.URL
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Server) initRoutes() {
	s.router.Use(s.countingMiddleware)

	s.router.HandleFunc(apimodel.RouteAuthRegister, s.registerHandler).Methods(http.MethodPost)
	s.router.HandleFunc(apimodel.RouteAuthLogin, s.loginHandler).Methods(http.MethodPost)
	s.router.HandleFunc(apimodel.RouteAuthRefresh, s.refreshHandler).Methods(http.MethodPost)
	s.router.HandleFunc(apimodel.RouteAuthLogout, s.requireAuth(s.logoutHandler)).Methods(http.MethodPost)
	s.router.HandleFunc(apimodel.RouteAuthMe, s.requireAuth(s.meHandler)).Methods(http.MethodGet)

	s.router.HandleFunc(apimodel.RouteUsers, s.requireStaff(s.listUsersHandler)).Methods(http.MethodGet)
	s.router.HandleFunc(apimodel.RouteUsers+"{id:[0-9]+}/", s.requireStaff(s.getUserHandler)).Methods(http.MethodGet)

	s.router.HandleFunc(apimodel.RouteArticles, s.optionalAuth(s.listArticlesHandler)).Methods(http.MethodGet)
	s.router.HandleFunc(apimodel.RouteArticles, s.requireAuth(s.createArticleHandler)).Methods(http.MethodPost)
	s.router.HandleFunc(apimodel.RouteArticles+"{id:[0-9]+}/", s.optionalAuth(s.getArticleHandler)).Methods(http.MethodGet)
	s.router.HandleFunc(apimodel.RouteArticles+"{id:[0-9]+}/", s.requireAuth(s.updateArticleHandler)).Methods(http.MethodPatch)
	s.router.HandleFunc(apimodel.RouteArticles+"{id:[0-9]+}/", s.requireAuth(s.deleteArticleHandler)).Methods(http.MethodDelete)
	s.router.HandleFunc(apimodel.RouteCategories, s.optionalAuth(s.listCategoriesHandler)).Methods(http.MethodGet)

	s.router.HandleFunc(apimodel.RouteReviews, s.optionalAuth(s.createReviewHandler)).Methods(http.MethodPost)
	s.router.HandleFunc(apimodel.RoutePredict, s.predictHandler).Methods(http.MethodPost)
	s.router.HandleFunc(apimodel.RouteHealth, s.healthHandler).Methods(http.MethodGet)
}

// countingMiddleware records every call by route template along with the Authorization
// header it carried.
func (s *Server) countingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := r.URL.Path
		if cr := mux.CurrentRoute(r); cr != nil {
			if tpl, err := cr.GetPathTemplate(); err == nil {
				route = tpl
			}
		}

		s.lock.Lock()
		s.calls[route]++
		s.authHeaders[route] = append(s.authHeaders[route], r.Header.Get("Authorization"))
		s.lock.Unlock()

		log.Debug().Str("method", r.Method).Str("route", route).Msg("fakeapi request")
		next.ServeHTTP(w, r)
	})
}

// Calls returns how many requests reached route (a path template such as
// apimodel.RouteAuthRefresh).
func (s *Server) Calls(route string) int {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.calls[route]
}

// AuthHeaders returns the Authorization header of every request to route, in arrival order.
func (s *Server) AuthHeaders(route string) []string {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]string(nil), s.authHeaders[route]...)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Err(err).Msg("fakeapi: failed to encode response")
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, apimodel.DetailResponse{Detail: detail})
}
