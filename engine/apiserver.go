package engine

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/thrasher-corp/twapper/database/repository/execution"
	"github.com/thrasher-corp/twapper/exchanges/strategy"
	"github.com/thrasher-corp/twapper/exchanges/strategy/common"
	"github.com/thrasher-corp/twapper/log"
)

// RESTLogger logs the requests internally
func RESTLogger(inner http.Handler, name string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		inner.ServeHTTP(w, r)
		log.Debugf(log.RESTSys,
			"%s\t%s\t%s\t%s",
			r.Method,
			r.RequestURI,
			name,
			time.Since(start),
		)
	})
}

// Router returns the multiplexor serving the REST routes and the websocket
// channel
func (e *Engine) Router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)
	routes := []Route{
		{"index", http.MethodGet, "/", e.getIndex},
		{"ws-twap", http.MethodGet, "/ws-twap", e.wsTWAP},
		{"executions", http.MethodGet, "/executions", e.getExecutions},
		{"running", http.MethodGet, "/executions/running", e.getRunning},
		{"execution", http.MethodGet, "/executions/{id}", e.getExecution},
		{"cancel", http.MethodPost, "/executions/{id}/cancel", e.cancelExecution},
	}
	if e.Metrics != nil {
		routes = append(routes, Route{"metrics", http.MethodGet, "/metrics", e.Metrics.Handler().ServeHTTP})
	}
	for _, route := range routes {
		router.
			Methods(route.Method).
			Path(route.Pattern).
			Name(route.Name).
			Handler(RESTLogger(route.HandlerFunc, route.Name))
	}
	return router
}

// RESTfulJSONResponse outputs a JSON response of the response interface
func RESTfulJSONResponse(w http.ResponseWriter, status int, response interface{}) error {
	w.Header().Set("Content-Type", "application/json; charset=UTF-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(response)
}

// RESTfulError prints the REST method and error
func RESTfulError(method string, err error) {
	log.Errorf(log.RESTSys, "RESTful %s: server failed to send JSON response. Error %s", method, err)
}

func respond(w http.ResponseWriter, r *http.Request, status int, response interface{}) {
	if err := RESTfulJSONResponse(w, status, response); err != nil {
		RESTfulError(r.Method, err)
	}
}

func (e *Engine) getIndex(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, map[string]string{"status": IndexStatus})
}

func (e *Engine) journal() (*execution.Journal, error) {
	if e.DatabaseManager == nil {
		return nil, errJournalUnavailable
	}
	j, err := e.DatabaseManager.Journal()
	if err != nil {
		return nil, errors.Join(errJournalUnavailable, err)
	}
	return j, nil
}

func (e *Engine) getExecutions(w http.ResponseWriter, r *http.Request) {
	j, err := e.journal()
	if err != nil {
		respond(w, r, http.StatusServiceUnavailable, errorResponse{err.Error()})
		return
	}
	limit := defaultListSize
	if l := r.URL.Query().Get("limit"); l != "" {
		if limit, err = strconv.Atoi(l); err != nil || limit < 1 {
			respond(w, r, http.StatusBadRequest, errorResponse{"limit must be a positive integer"})
			return
		}
	}
	list, err := j.List(r.Context(), limit)
	if err != nil {
		respond(w, r, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	if list == nil {
		list = []execution.Execution{}
	}
	respond(w, r, http.StatusOK, list)
}

func (e *Engine) getExecution(w http.ResponseWriter, r *http.Request) {
	j, err := e.journal()
	if err != nil {
		respond(w, r, http.StatusServiceUnavailable, errorResponse{err.Error()})
		return
	}
	id := mux.Vars(r)["id"]
	ex, err := j.Get(r.Context(), id)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, execution.ErrExecutionNotFound) {
			status = http.StatusNotFound
		}
		respond(w, r, status, errorResponse{err.Error()})
		return
	}
	events, err := j.Events(r.Context(), id)
	if err != nil {
		respond(w, r, http.StatusInternalServerError, errorResponse{err.Error()})
		return
	}
	respond(w, r, http.StatusOK, ExecutionDetail{Execution: ex, Events: events})
}

func (e *Engine) getRunning(w http.ResponseWriter, r *http.Request) {
	respond(w, r, http.StatusOK, e.Strategies.Running())
}

func (e *Engine) cancelExecution(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	ctx, cancel := context.WithTimeout(r.Context(), wsWriteTimeout)
	defer cancel()
	if err := e.Strategies.Stop(ctx, id); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, strategy.ErrNotFound) {
			status = http.StatusNotFound
		}
		respond(w, r, status, errorResponse{err.Error()})
		return
	}
	log.Infof(log.RESTSys, "Cancel requested for execution %s", id)
	respond(w, r, http.StatusAccepted, map[string]string{"id": id, "action": common.ActionCancel})
}

// wsTWAP upgrades to the execution channel. The first frame starts an
// execution that streams status events until its terminal event.
func (e *Engine) wsTWAP(w http.ResponseWriter, r *http.Request) {
	e.sessions.Add(1)
	defer e.sessions.Done()

	conn, err := e.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf(log.WebsocketMgr, "Websocket upgrade failed: %v", err)
		return
	}
	s := newSession(conn, e.Config.Server.ReadLimit)
	e.Metrics.sessionOpened()
	defer e.Metrics.sessionClosed()
	log.Debugf(log.WebsocketMgr, "Websocket client %s connected", conn.RemoteAddr())

	ctx := e.baseContext()
	go func() {
		select {
		case <-ctx.Done():
			if err := s.Close(); err != nil {
				log.Debugf(log.WebsocketMgr, "Closing session on shutdown: %v", err)
			}
		case <-s.closed:
		}
	}()

	terminal := e.runSession(s)
	log.Infof(log.WebsocketMgr, "Websocket client %s finished %s execution %s: %s",
		conn.RemoteAddr(), terminal.Status, terminal.ID, terminal.Message)
}

func (e *Engine) runSession(s *session) common.Event {
	ctx := e.baseContext()
	req, err := s.readStart(e.defaultRequest())
	if err != nil {
		rejected := s.reject(ctx, err)
		e.Metrics.Observe("", 0, &rejected)
		return rejected
	}
	var observers []common.Observer
	if tracker, err := e.Strategies.Track(s.requestCancel); err == nil {
		observers = append(observers, tracker)
	}
	if e.Metrics != nil {
		observers = append(observers, e.Metrics)
	}
	if j, err := e.journal(); err == nil {
		observers = append(observers, newJournalObserver(j, req))
	}
	return e.TWAP.Execute(ctx, req, s, observers...)
}
