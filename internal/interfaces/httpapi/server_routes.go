package httpapi

import "net/http"

const functionsPrefix = "/functions/v1/"

func registerSystemRoutes(mux *http.ServeMux, handler *Handler, metricsHandler http.Handler) {
	mux.HandleFunc("GET /healthz", handler.Healthz)
	if metricsHandler != nil {
		mux.Handle("GET /metrics", metricsHandler)
	}
}

func registerPublicDomainRoutes(mux *http.ServeMux, handler *Handler) {
	mux.HandleFunc("GET /v1/leagues", handler.ListLeagues)
	mux.HandleFunc("GET /v1/leagues/{leagueID}/matches", handler.ListMatchesByLeague)
	mux.HandleFunc("GET /v1/matches", handler.ListMatchesByCategory)
	mux.HandleFunc("GET /v1/matches/live", handler.ListLiveMatches)
	mux.HandleFunc("GET /v1/news", handler.ListNews)
}

// Function routes accept every method; OPTIONS is answered by the preflight
// wrapper before the token check.
func registerFunctionRoutes(mux *http.ServeMux, handler *Handler, internalJobToken string) {
	mux.Handle(functionsPrefix+"{job}", FunctionPreflight(RequireInternalJobToken(internalJobToken, http.HandlerFunc(handler.InvokeJob))))
}
