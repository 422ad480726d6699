// Package http is the JSON API over the ledger: users, groups, expenses,
// balances, activity, and settlement marks.
package http

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"divvy/internal/cache"
	"divvy/internal/core"
	"divvy/internal/ledger"
	"divvy/internal/middleware/ratelimit"
	"divvy/internal/middleware/security"
	"divvy/internal/middleware/trace"
	"divvy/internal/services"
)

const (
	groupExpensesCacheSize = 256
	groupExpensesCacheTTL  = 30 * time.Second
)

type Server struct {
	store      ledger.Store
	ledgerSvc  *services.LedgerService
	balanceSvc *services.BalanceService

	// Hot group expense listings are cached; balances are always derived
	// fresh from the ledger.
	groupExpenses *cache.LRUCache[[]core.Expense]
	cacheManager  *cache.Manager

	limiter *ratelimit.Limiter
	tracer  *trace.Middleware
	httpSrv *http.Server
}

func NewServer(addr string, store ledger.Store, ledgerSvc *services.LedgerService, balanceSvc *services.BalanceService) *Server {
	s := &Server{
		store:         store,
		ledgerSvc:     ledgerSvc,
		balanceSvc:    balanceSvc,
		groupExpenses: cache.NewLRUCache[[]core.Expense](groupExpensesCacheSize, groupExpensesCacheTTL),
		cacheManager:  cache.NewManager(),
		limiter:       ratelimit.NewLimiter(ratelimit.DefaultConfig()),
		tracer:        trace.NewMiddleware(extractClientIP),
	}
	s.cacheManager.Register(s.groupExpenses)
	s.cacheManager.StartCleanup(time.Minute)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)

	mux.HandleFunc("GET /api/users", s.handleListUsers)
	mux.HandleFunc("POST /api/users", s.handleCreateUser)

	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("GET /api/groups/{id}/expenses", s.handleGroupExpenses)
	mux.HandleFunc("GET /api/groups/{id}/balance", s.handleGroupBalance)

	mux.HandleFunc("GET /api/expenses", s.handleListExpenses)
	mux.HandleFunc("POST /api/expenses", s.handleCreateExpense)

	mux.HandleFunc("GET /api/balances", s.handleBalances)
	mux.HandleFunc("GET /api/activity", s.handleActivity)

	mux.HandleFunc("GET /api/settlements", s.handleListSettlements)
	mux.HandleFunc("POST /api/settlements", s.handleMarkSettled)
	mux.HandleFunc("DELETE /api/settlements", s.handleResetSettlements)

	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	rateLimited := s.limiter.Middleware(extractClientIP, nil)

	var handler http.Handler = mux
	handler = headers.Middleware(handler)
	handler = rateLimited(handler)
	handler = s.tracer.Middleware(handler)

	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// Handler exposes the composed middleware chain, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

func (s *Server) ListenAndServe() error {
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	s.cacheManager.Stop()
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) invalidateGroupExpenses(groupID string) {
	s.groupExpenses.Delete(groupID)
}

func extractClientIP(r *http.Request) string {
	// Honor the usual proxy headers, first hop wins.
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	if real := r.Header.Get("X-Real-IP"); real != "" {
		return real
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
