package restapi

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
	"grouptrip.org/internal/appconf"
	"grouptrip.org/internal/webui"
)

func (api *RestAPI) routes() http.Handler {
	router := httprouter.New()
	router.HandleOPTIONS = false
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.errorResponse(w, http.StatusNotFound, "not found")
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		api.errorResponse(w, http.StatusMethodNotAllowed, "method not allowed")
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
		api.serverErrorResponse(w, r, panicError{value: v})
	}

	router.HandlerFunc(http.MethodPost, "/api/plan", api.planHandler)
	router.HandlerFunc(http.MethodGet, "/api/snapshot", api.snapshotHandler)
	router.HandlerFunc(http.MethodGet, "/healthz", api.healthHandler)
	if api.Metrics != nil {
		router.Handler(http.MethodGet, "/metrics", api.Metrics.Handler())
	}
	if api.Config.Environment() != appconf.Production {
		webUI := &webui.WebUI{Cache: api.Cache, Tables: api.Store}
		webUI.SetWebUIRoutes(router)
	}

	return router
}
