package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"friendlink/internal/domain"
	"friendlink/internal/service"
)

// IdentityFunc resolves the authenticated user for a request. It is the
// boundary to whatever authenticates callers upstream of this service.
type IdentityFunc func(*http.Request) (domain.User, error)

type RouterOpts struct {
	Logger *slog.Logger
	IsProd bool

	DBPing func(context.Context) error

	Friends  *service.FriendsService
	Identity IdentityFunc
}

func NewRouter(opts RouterOpts) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	api := &api{
		logger:        logger,
		isProd:        opts.IsProd,
		dbPing:        opts.DBPing,
		friendsSvc:    opts.Friends,
		identity:      opts.Identity,
		submitLimiter: newSubmitLimiter(),
	}

	publicMux := http.NewServeMux()
	apiMux := http.NewServeMux()

	publicMux.HandleFunc("GET /healthz", api.handleHealthz)

	if api.friendsSvc == nil {
		apiMux.HandleFunc("/v1/friends/", handleNotImplemented)
	} else {
		apiMux.HandleFunc("POST /v1/friends/requests", api.requireUser(api.handleFriendsSubmit))
		apiMux.HandleFunc("GET /v1/friends/requests/incoming", api.requireUser(api.handleFriendsIncoming))
		apiMux.HandleFunc("GET /v1/friends/requests/outgoing", api.requireUser(api.handleFriendsOutgoing))
		apiMux.HandleFunc("GET /v1/friends/requests/unread-count", api.requireUser(api.handleFriendsUnreadCount))
		apiMux.HandleFunc("POST /v1/friends/requests/read", api.requireUser(api.handleFriendsMarkRead))
		apiMux.HandleFunc("POST /v1/friends/requests/from/{fromId}/accept", api.requireUser(api.handleFriendsAccept))
		apiMux.HandleFunc("POST /v1/friends/requests/{id}/cancel", api.requireUser(api.handleFriendsCancel))
	}

	apiHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, pattern := apiMux.Handler(r); pattern == "" {
			handleV1NotFound(w, r)
			return
		}
		// Dispatch through the mux itself so path values get populated.
		apiMux.ServeHTTP(w, r)
	})

	root := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/v1/") || r.URL.Path == "/v1" {
			apiHandler.ServeHTTP(w, r)
			return
		}
		publicMux.ServeHTTP(w, r)
	})

	var h http.Handler = root
	h = Metrics()(h)
	h = RequestLogger(logger)(h)
	h = RequestID()(h)
	h = Recoverer(logger, opts.IsProd)(h)
	return h
}

func handleNotImplemented(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotImplemented, "not_implemented", "not implemented")
}

func handleV1NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, http.StatusNotFound, "not_found", "not found")
}

type api struct {
	logger *slog.Logger
	isProd bool

	dbPing func(context.Context) error

	friendsSvc *service.FriendsService
	identity   IdentityFunc

	submitLimiter *submitLimiter
}

func (a *api) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.identity == nil {
			WriteDomainError(w, domain.ErrUnauthorized)
			return
		}
		u, err := a.identity(r)
		if err != nil {
			WriteDomainError(w, err)
			return
		}
		ctx := context.WithValue(r.Context(), currentUserKey, u)
		next.ServeHTTP(w, r.WithContext(ctx))
	}
}

func CurrentUser(ctx context.Context) (domain.User, bool) {
	u, ok := ctx.Value(currentUserKey).(domain.User)
	return u, ok
}

func (a *api) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")

	if a.dbPing != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 1*time.Second)
		defer cancel()
		if err := a.dbPing(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("db down"))
			return
		}
	}

	_, _ = w.Write([]byte("ok"))
}
