package serv

import (
	"net/http"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
)

const (
	routeQuery  = "/api/v1/query"
	healthRoute = "/health"
)

// Mux is the minimal router interface the service mounts its routes on.
type Mux interface {
	Handle(string, http.Handler)
	ServeHTTP(http.ResponseWriter, *http.Request)
}

// routesHandler mounts the service routes and wraps them in the
// configured middleware.
func routesHandler(s1 *HttpService, mux Mux) (http.Handler, error) {
	s := s1.Load().(*qmapService)

	mux.Handle(healthRoute, healthCheckHandler(s1))

	var h http.Handler = queryHandler(s1)
	if s.resCache != nil {
		h = s.resCache.middleware(h)
	}
	mux.Handle(routeQuery, h)

	var routes http.Handler = mux
	if s.conf.rateLimiterEnable() {
		routes = rateLimiter(s1, routes)
	}
	if len(s.conf.AllowedOrigins) > 0 {
		routes = corsHandler(s.conf).Handler(routes)
	}
	if s.conf.HTTPGZip {
		gz, err := gzhttp.NewWrapper(gzhttp.MinSize(512))
		if err != nil {
			return nil, err
		}
		routes = gz(routes)
	}
	return setServerHeader(routes), nil
}

func corsHandler(conf *Config) *cors.Cors {
	allowedHeaders := conf.AllowedHeaders
	if len(allowedHeaders) == 0 {
		allowedHeaders = []string{"*"}
	}
	return cors.New(cors.Options{
		AllowedOrigins:   conf.AllowedOrigins,
		AllowedHeaders:   allowedHeaders,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost},
		AllowCredentials: true,
		Debug:            conf.DebugCORS,
	})
}
