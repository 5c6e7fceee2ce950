// Package coordinator implements the serialized event lane from spec §5:
// every watcher callback and every control-socket command runs through one
// logical queue so result events and control commands observe a total
// order, matching the teacher's single-threaded App struct in main.go
// (which dispatched both recording-state transitions and IPC commands
// through one value) generalized to a real work queue instead of relying on
// there being only one goroutine in flight.
package coordinator

import (
	"time"

	"go.uber.org/zap"

	"github.com/ognistik/macrowhisper-go/internal/action"
	"github.com/ognistik/macrowhisper-go/internal/config"
	"github.com/ognistik/macrowhisper-go/internal/ipc"
	"github.com/ognistik/macrowhisper-go/internal/logging"
	"github.com/ognistik/macrowhisper-go/internal/recordings"
	"github.com/ognistik/macrowhisper-go/internal/service"
)

// HealthInterval is the default period of the control socket's self-health
// ping, per spec §4.H.
const HealthInterval = 300 * time.Second

// Coordinator owns the event lane: a buffered channel of closures, drained
// by a single goroutine, that every watcher callback and IPC command is
// funneled through. moveTo and history cleanup run on their own workers
// (action.Dispatcher's move worker, the cleanup worker); action execution
// itself, including its actionDelay sleep and any external process it
// starts, runs on the lane inside Dispatch, so the lane is busy for the
// length of one action.
type Coordinator struct {
	store      *config.Store
	pipeline   *recordings.Watcher
	dispatcher *action.Dispatcher
	svc        service.Manager
	log        *logging.Logger

	socketPath string
	server     *ipc.Server

	lane     chan func()
	stopLane chan struct{}
	stopHealth chan struct{}
}

// New wires the coordinator's collaborators. Start must be called to begin
// processing.
func New(store *config.Store, pipeline *recordings.Watcher, dispatcher *action.Dispatcher, svc service.Manager, socketPath string, log *logging.Logger) *Coordinator {
	return &Coordinator{
		store:      store,
		pipeline:   pipeline,
		dispatcher: dispatcher,
		svc:        svc,
		socketPath: socketPath,
		log:        log,
		lane:       make(chan func(), 256),
		stopLane:   make(chan struct{}),
		stopHealth: make(chan struct{}),
	}
}

// Start runs the event lane, brings up the control socket, and starts its
// health timer. The pipeline's result handler is supplied by whoever built
// the pipeline; it reaches the lane through OnResult.
func (c *Coordinator) Start() error {
	go c.runLane()

	if err := c.startServer(); err != nil {
		return err
	}
	go c.runHealthTimer()
	return nil
}

// startServer (re)builds the IPC server bound to the handler that posts
// every decoded command onto the event lane and blocks for its result, per
// spec §5's "control-socket dispatches run on the serialized event queue".
func (c *Coordinator) startServer() error {
	server := ipc.NewServer(c.socketPath, c.handle, c.log)
	if err := server.Start(); err != nil {
		return err
	}
	c.server = server
	return nil
}

// Stop tears down the socket, the pipeline, and the event lane.
func (c *Coordinator) Stop() {
	close(c.stopHealth)
	if c.server != nil {
		c.server.Stop()
	}
	c.pipeline.Stop()
	close(c.stopLane)
}

func (c *Coordinator) runLane() {
	for {
		select {
		case fn := <-c.lane:
			fn()
		case <-c.stopLane:
			return
		}
	}
}

// post enqueues fn on the event lane and waits for it to run, giving the
// caller (an IPC connection goroutine, or a pipeline callback already
// running off the lane) a synchronous result without itself executing on
// more than one goroutine at a time.
func (c *Coordinator) post(fn func()) {
	done := make(chan struct{})
	c.lane <- func() {
		fn()
		close(done)
	}
	<-done
}

// OnResult is the recordings.Handler passed to the pipeline: it posts
// dispatch onto the event lane so it's totally ordered against control
// commands, per spec §5.
func (c *Coordinator) OnResult(ev recordings.ResultEvent) {
	c.post(func() {
		c.dispatcher.Dispatch(ev)
	})
}

// runHealthTimer self-pings the control socket on HealthInterval; a failed
// ping tears down and rebuilds the server, per spec §4.H. A tick that fires
// much later than HealthInterval means the process was suspended (system
// sleep) rather than the socket having gone bad, so it's treated as a reset
// rather than a failed ping — the timer is effectively paused across sleep
// and resumes its normal cadence on wake instead of reporting a false
// failure for the stale gap.
func (c *Coordinator) runHealthTimer() {
	ticker := time.NewTicker(HealthInterval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-c.stopHealth:
			return
		case now := <-ticker.C:
			if now.Sub(last) > HealthInterval+HealthInterval/2 {
				c.log.Debug("health timer gap exceeds interval, assuming system sleep, skipping this check")
				last = now
				continue
			}
			last = now
			c.checkHealth()
		}
	}
}

func (c *Coordinator) checkHealth() {
	client := ipc.NewClient(c.socketPath)
	if _, err := client.Send(ipc.Command{Command: "status"}); err != nil {
		c.log.Warn("control socket health check failed, rebuilding", zap.Error(err))
		if c.server != nil {
			c.server.Stop()
		}
		if err := c.startServer(); err != nil {
			c.log.Error("failed to rebuild control socket", zap.Error(err))
		}
	}
}
