package router

import (
	"database/sql"
	_ "embed"
	"net/http"
	"os"

	mem "livestock-registry/internal/adapters/storage/memory"
	pg "livestock-registry/internal/adapters/storage/postgres"
	"livestock-registry/internal/domain/assignments"
	"livestock-registry/internal/domain/cattle"
	"livestock-registry/internal/domain/kraals"
	"livestock-registry/internal/middleware"
	"livestock-registry/internal/platform/logger"
	"livestock-registry/internal/ports/auth"
	"livestock-registry/internal/ports/images"
	"livestock-registry/internal/ports/notify"
	"livestock-registry/internal/ports/permissions"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	httpSwagger "github.com/swaggo/http-swagger"
)

//go:embed openapi.json
var openapiSpec []byte

type Options struct {
	AuthVerifier auth.AuthVerifier      // puede ser nil (modo dev)
	Authorizer   permissions.Authorizer // puede ser nil => solo owner
	Notifier     notify.Notifier        // puede ser nil
	Images       images.Store           // puede ser nil => upload deshabilitado
	Logger       logger.Logger          // puede ser nil => sin access log

	// Opcional: si viene, usa Postgres. Si no, in-memory.
	DB *sql.DB
}

func NewRouter(opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if opts.Logger != nil {
		r.Use(middleware.AccessLog(opts.Logger))
	}

	r.Use(middleware.AuthContext(opts.AuthVerifier))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// API docs: spec embebida + UI de swagger.
	r.Get("/openapi.json", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(openapiSpec)
	})
	r.Get("/docs/*", httpSwagger.Handler(
		httpSwagger.URL("/openapi.json"),
	))

	var (
		kraalRepo  kraals.Repository
		cattleRepo cattle.Repository
		asgRepo    assignments.Repository
	)

	// Si no te pasan DB explícita, intenta por env (para dev/handoff)
	db := opts.DB
	if db == nil {
		if dsn := os.Getenv("DB_DSN"); dsn != "" {
			opened, err := pg.Open(dsn)
			if err == nil {
				db = opened
			}
		}
	}

	if db != nil {
		kraalRepo = pg.NewKraalsRepo(db)
		cattleRepo = pg.NewCattleRepo(db)
		asgRepo = pg.NewAssignmentsRepo(db)
	} else {
		kraalRepo = mem.NewKraalsRepo()
		cattleRepo = mem.NewCattleRepo()
		asgRepo = mem.NewAssignmentsRepo()
	}

	// Services por módulo
	asgSvc := assignments.NewService(asgRepo)
	kraalSvc := kraals.NewService(kraalRepo, asgSvc, opts.Notifier)
	cattleSvc := cattle.NewService(cattleRepo, asgSvc, kraalSvc, opts.Notifier)

	// Rutas por módulo
	kraals.RegisterRoutes(r, kraalSvc, opts.Authorizer)
	cattle.RegisterRoutes(r, cattleSvc, asgSvc, opts.Images, opts.Authorizer)

	return r
}
