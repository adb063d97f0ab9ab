package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"

	"github.com/JustinTDCT/Videotheque/internal/auth"
	"github.com/JustinTDCT/Videotheque/internal/catalog"
	"github.com/JustinTDCT/Videotheque/internal/config"
	"github.com/JustinTDCT/Videotheque/internal/covers"
	"github.com/JustinTDCT/Videotheque/internal/models"
	"github.com/JustinTDCT/Videotheque/internal/users"
	"github.com/JustinTDCT/Videotheque/internal/version"
)

// Discovery is the movie provider behind the /metadata routes.
type Discovery interface {
	SearchByName(ctx context.Context, query string) ([]models.NormalizedMovie, error)
	DiscoverByGenres(ctx context.Context, names []string) ([]models.NormalizedMovie, error)
	DiscoverByYear(ctx context.Context, year int) ([]models.NormalizedMovie, error)
	Details(ctx context.Context, id int) (*models.NormalizedMovie, error)
	Horror(ctx context.Context) ([]models.NormalizedMovie, error)
	Popular(ctx context.Context) ([]models.NormalizedMovie, error)
	NowPlaying(ctx context.Context) ([]models.NormalizedMovie, error)
}

type Deps struct {
	Users     *users.Directory
	Catalog   *catalog.Store
	Covers    *covers.Store
	Discovery Discovery
	Issuer    *auth.Issuer
	Version   version.Info
}

type Server struct {
	config    *config.Config
	users     *users.Directory
	catalog   *catalog.Store
	covers    *covers.Store
	discovery Discovery
	issuer    *auth.Issuer
	auth      *auth.Middleware
	version   version.Info
	router    chi.Router
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	s := &Server{
		config:    cfg,
		users:     deps.Users,
		catalog:   deps.Catalog,
		covers:    deps.Covers,
		discovery: deps.Discovery,
		issuer:    deps.Issuer,
		auth:      auth.NewMiddleware(deps.Issuer, deps.Users),
		version:   deps.Version,
	}
	s.router = s.routes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger()...)
	r.Use(middleware.Recoverer)
	r.Use(securityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.config.Security.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/auth", func(r chi.Router) {
		if n := s.config.Security.AuthRateLimit; n > 0 {
			r.Use(httprate.LimitByIP(n, s.config.Security.AuthRateWindow))
		}
		r.Post("/register", s.handleRegister)
		r.Post("/login", s.handleLogin)
		r.With(s.auth.RequireAuth).Post("/delete", s.handleDeleteAccount)
	})

	r.Group(func(r chi.Router) {
		r.Use(s.auth.RequireAuth)

		r.Get("/movies/index", s.handleMoviesIndex)
		r.Get("/movies/summary", s.handleMoviesSummary)
		r.Post("/movies", s.handleAddMovie)
		r.Delete("/movies", s.handleDeleteMovie)
		r.Patch("/movies", s.handleEditMovie)

		r.Get("/metadata/search", s.handleMetadataSearch)
		r.Get("/metadata/movie", s.handleMetadataMovie)
		r.Get("/metadata/quick", s.handleMetadataQuick)
		r.Get("/metadata/genres", s.handleMetadataGenres)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, r, errNoRoute)
	})
	return r
}
