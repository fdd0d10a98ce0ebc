package httpapi

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/DoyleJ11/twenty-questions-backend/internal/archive"
	"github.com/DoyleJ11/twenty-questions-backend/internal/hub"
	"github.com/DoyleJ11/twenty-questions-backend/internal/ws"
)

type Deps struct {
	Hub      *hub.Hub
	Recorder archive.Recorder
	Logger   *zap.Logger
	// AllowedOrigins are full origins such as https://play.example.com.
	// Empty means same-origin only.
	AllowedOrigins []string
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.Recorder == nil {
		d.Recorder = archive.Nop{}
	}

	r := chi.NewRouter()
	if len(d.AllowedOrigins) > 0 {
		r.Use(cors.New(cors.Options{
			AllowedOrigins: d.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost},
		}).Handler)
	}

	// Public routes
	r.Get("/healthz", Healthz(d.Hub))
	r.Get("/rooms", ListRooms(d.Hub))
	r.Post("/rooms/code", SuggestCode(d.Hub))
	r.Get("/rooms/{code}/rounds", RecentRounds(d.Recorder, d.Logger))
	r.Get("/ws", ws.Handler(d.Hub, ws.Options{
		Logger:         d.Logger,
		OriginPatterns: originPatterns(d.AllowedOrigins),
	}))
	return r
}

// originPatterns turns CORS origins into the host patterns the websocket
// handshake checks.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		if o == "*" {
			return []string{"*"}
		}
		u, err := url.Parse(o)
		if err != nil || u.Host == "" {
			continue
		}
		out = append(out, u.Host)
	}
	return out
}
