package api

import (
	"net/http"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/inkwell-blog/server/internal/api/handlers"
	"github.com/inkwell-blog/server/internal/api/middleware"
	"github.com/inkwell-blog/server/internal/auth"
	"github.com/inkwell-blog/server/internal/config"
	"github.com/inkwell-blog/server/internal/metrics"
	"github.com/inkwell-blog/server/internal/realtime"
	"github.com/inkwell-blog/server/internal/storage"
)

// NewRouter assembles the HTTP surface: auth, articles, comments, users,
// the websocket endpoint and the operational probes, wrapped in the shared
// middleware chain.
func NewRouter(cfg config.Config, logger zerolog.Logger, repo storage.Repository, pinger handlers.Pinger, hub *realtime.Hub) http.Handler {
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.JWTExpiry, cfg.Server.BaseURL)
	authorizer := auth.NewAuthorizer(repo.Subjects())

	authHandler := handlers.NewAuthHandler(repo.Subjects(), repo.Roles(), tokens, cfg.Auth.AdminCode, cfg.Environment)
	articlesHandler := handlers.NewArticlesHandler(repo.Articles(), authorizer, cfg.Environment)
	commentsHandler := handlers.NewCommentsHandler(repo, authorizer, hub, cfg.Environment)
	usersHandler := handlers.NewUsersHandler(repo.Subjects(), authorizer, cfg.Environment)

	authenticate := middleware.Authenticate(tokens, cfg.Environment)
	manageUsers := middleware.RequirePermission(authorizer, "manage:users", cfg.Environment)
	createArticle := middleware.RequirePermission(authorizer, "create:article", cfg.Environment)
	loginTier := middleware.WithRateLimitTierHandler(middleware.TierLogin)

	mux := http.NewServeMux()
	mux.Handle("/healthz", handlers.Healthz())
	mux.Handle("/readyz", handlers.Readyz(pinger))
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/ws", realtime.Handler(hub, logger))

	mux.Handle("/api/v1/auth/register", methodMux(map[string]http.Handler{
		http.MethodPost: http.HandlerFunc(authHandler.Register),
	}))
	mux.Handle("/api/v1/auth/login", methodMux(map[string]http.Handler{
		http.MethodPost: loginTier(http.HandlerFunc(authHandler.Login)),
	}))

	mux.Handle("/api/v1/articles", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(articlesHandler.List),
		http.MethodPost: authenticate(createArticle(http.HandlerFunc(articlesHandler.Create))),
	}))
	mux.Handle("/api/v1/articles/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    http.HandlerFunc(articlesHandler.Get),
		http.MethodPut:    authenticate(http.HandlerFunc(articlesHandler.Update)),
		http.MethodDelete: authenticate(http.HandlerFunc(articlesHandler.Delete)),
	}))
	mux.Handle("/api/v1/articles/{id}/comments", methodMux(map[string]http.Handler{
		http.MethodGet:  http.HandlerFunc(commentsHandler.ListByArticle),
		http.MethodPost: authenticate(http.HandlerFunc(commentsHandler.Create)),
	}))
	mux.Handle("/api/v1/comments/{id}", methodMux(map[string]http.Handler{
		http.MethodDelete: authenticate(http.HandlerFunc(commentsHandler.Delete)),
	}))

	mux.Handle("/api/v1/users", methodMux(map[string]http.Handler{
		http.MethodGet: authenticate(manageUsers(http.HandlerFunc(usersHandler.List))),
	}))
	mux.Handle("/api/v1/users/{id}", methodMux(map[string]http.Handler{
		http.MethodGet:    authenticate(http.HandlerFunc(usersHandler.Get)),
		http.MethodPut:    authenticate(http.HandlerFunc(usersHandler.Update)),
		http.MethodDelete: authenticate(http.HandlerFunc(usersHandler.Delete)),
	}))

	var handler http.Handler = mux
	handler = middleware.RateLimit(cfg.RateLimit)(handler)
	handler = metrics.HTTPMiddleware(handler)
	handler = middleware.CORS(cfg.CORS, logger)(handler)
	handler = middleware.RequestLogging(logger)(handler)
	return handler
}

func methodMux(handlers map[string]http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if handler, ok := handlers[r.Method]; ok {
			handler.ServeHTTP(w, r)
			return
		}
		w.Header().Set("Allow", allowedMethods(handlers))
		w.WriteHeader(http.StatusMethodNotAllowed)
	})
}

func allowedMethods(handlers map[string]http.Handler) string {
	methods := make([]string, 0, len(handlers))
	for method := range handlers {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return strings.Join(methods, ", ")
}
