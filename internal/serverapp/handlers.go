package serverapp

import (
	"encoding/json"
	"errors"
	"net/http"

	"restq/internal/builder"
	"restq/internal/logging"
	"restq/internal/pagination"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func (a *App) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.db.PingContext(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "database unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleEntityQuery serves GET /{entity}: the query string is parsed
// into a request, compiled against the entity's allow-lists, executed,
// and returned as a data envelope with pagination metadata.
func (a *App) handleEntityQuery(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("entity")
	e, ok := a.registry.Get(name)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "unknown entity: " + name})
		return
	}

	req := builder.ParseRequestWith(r.URL.Query(), builder.ParseOptions{
		DefaultMode:    pagination.Mode(a.cfg.Query.DefaultPagination),
		DefaultPerPage: a.cfg.Query.DefaultPerPage,
		MaxPerPage:     a.cfg.Query.MaxPerPage,
	})

	opts := []builder.Option{builder.WithScopeResolver(a.scopes)}
	if a.cache != nil {
		opts = append(opts, builder.WithCache(a.cache))
	}
	qb := builder.New(e, a.executor, opts...)

	result, err := qb.Paginate(r.Context(), req)
	if err != nil {
		// Compilation failures (bad cursor, mismatched sort) are the
		// caller's problem; execution failures are ours.
		log := logging.FromContext(r.Context())
		if errors.Is(err, builder.ErrInvalidRequest) {
			log.Warn("rejected query request", "entity", name, "error", err.Error())
			writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
			return
		}
		log.Error("query execution failed", "entity", name, "error", err.Error())
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "query execution failed"})
		return
	}

	writeJSON(w, http.StatusOK, result)
}
