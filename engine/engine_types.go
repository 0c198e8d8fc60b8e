package engine

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/thrasher-corp/twapper/config"
	"github.com/thrasher-corp/twapper/database/repository/execution"
	"github.com/thrasher-corp/twapper/exchanges/strategy"
	"github.com/thrasher-corp/twapper/exchanges/strategy/twap"
	"github.com/thrasher-corp/twapper/subsystems/databaseconnection"
)

const (
	// IndexStatus is the readiness reply of the REST root
	IndexStatus = "TWAP server running"

	wsWriteTimeout  = 10 * time.Second
	shutdownTimeout = 15 * time.Second
	journalTimeout  = 5 * time.Second
	defaultListSize = 100
)

var (
	errNilConfig          = errors.New("engine config is nil")
	errEngineIsNil        = errors.New("engine is nil")
	errAlreadyRunning     = errors.New("engine already running")
	errNotRunning         = errors.New("engine not running")
	errJournalUnavailable = errors.New("execution journal unavailable")
	errChannelClosed      = errors.New("channel closed")
	errUnexpectedState    = errors.New("unexpected session state")
	errInvalidStart       = errors.New("invalid start request")
	errInvalidField       = errors.New("invalid field")
	errInvalidControl     = errors.New("invalid control message")
)

// Engine is the daemon. It owns the exchange, the TWAP engine, the database
// subsystem and the HTTP listener serving REST and the websocket channel.
type Engine struct {
	Config          *config.Config
	Exchange        twap.Exchange
	TWAP            *twap.Engine
	DatabaseManager *databaseconnection.Manager
	Metrics         *Metrics
	Strategies      *strategy.Manager
	ServicesWG      sync.WaitGroup

	upgrader websocket.Upgrader
	server   *http.Server
	addr     string
	ctx      context.Context
	cancel   context.CancelFunc
	sessions sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// Route is a REST route served by the engine router
type Route struct {
	Name        string
	Method      string
	Pattern     string
	HandlerFunc http.HandlerFunc
}

// ExecutionDetail is the REST reply for a single journaled execution
type ExecutionDetail struct {
	Execution *execution.Execution `json:"execution"`
	Events    []execution.Event    `json:"events"`
}

type errorResponse struct {
	Error string `json:"error"`
}
