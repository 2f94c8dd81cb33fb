package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/ntentasd/colmena-telemetry/internal/dashboard"
	"github.com/ntentasd/colmena-telemetry/pkg/utils"
)

func healthHandler(w http.ResponseWriter, r *http.Request) {
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"state": "healthy",
	})
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	utils.ReplyNotFound(w, "not found")
}

func methodNotAllowedHandler(w http.ResponseWriter, r *http.Request) {
	utils.ReplyMethodNotAllowed(w)
}

func (app *App) readyHandler(w http.ResponseWriter, r *http.Request) {
	if app.Cache != nil {
		ctx, cancel := context.WithTimeout(r.Context(), time.Second)
		defer cancel()
		if err := app.Cache.Ping(ctx); err != nil {
			app.logger.Warn().Err(err).Msg("cache not ready")
			utils.ReplyServiceUnavailable(w, "cache unavailable")
			return
		}
	}

	st := app.State.Snapshot()
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"state":   "ready",
		"loading": st.Loading,
	})
}

func (app *App) dashboardHandler(w http.ResponseWriter, r *http.Request) {
	view := dashboard.NewView(app.State.Snapshot())
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": view,
	})
}

func (app *App) currentHandler(w http.ResponseWriter, r *http.Request) {
	st := app.State.Snapshot()
	if st.Current == nil {
		utils.ReplyNotFound(w, "no current reading yet")
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data":   st.Current,
		"status": st.Status,
	})
}

func (app *App) historyHandler(w http.ResponseWriter, r *http.Request) {
	st := app.State.Snapshot()
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data":    st.History,
		"records": len(st.History),
		"loading": st.Loading,
	})
}

func (app *App) statusHandler(w http.ResponseWriter, r *http.Request) {
	view := dashboard.NewView(app.State.Snapshot())
	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"status":     view.Status,
		"message":    view.Message,
		"bands":      view.Bands,
		"sensors":    view.Sensors,
		"updated_at": view.UpdatedAt,
	})
}
