/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

/*
Package gateway implements the dispatcher described in spec §4.4: the
single logical router that accepts HTTP, gRPC, and IPC connections,
matches HTTP/gRPC requests to registered handlers, and drives the
external-call lifecycle against the watchdog registry and shared-memory
regions.

The HTTP and gRPC facades are intentionally thin: wire parsing for both
is treated as an external collaborator (spec §1's out-of-scope list), so
this package hands net/http its request/response plumbing directly and
reserves the worker/transfer-bus machinery in internal/worker and
internal/transferbus for the IPC control channel, which is the
connection class spec §4.3 actually describes (long-lived, pinned,
read-driving connections to watchdog processes).

Every Dispatcher also owns one internal/metalog.LogSpaceBase and one
internal/index.Coordinator (spec §4.7): engine workers feed shard reports
over the same IPC channel as an INDEX_DATA_SHARD frame (see
indexfeed.go), and POST /index/query exposes MakeQuery to callers outside
that feed path.
*/
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/firefly-research/gatewayd/internal/config"
	"github.com/firefly-research/gatewayd/internal/funcconfig"
	"github.com/firefly-research/gatewayd/internal/gwerrors"
	"github.com/firefly-research/gatewayd/internal/health"
	"github.com/firefly-research/gatewayd/internal/ids"
	"github.com/firefly-research/gatewayd/internal/index"
	"github.com/firefly-research/gatewayd/internal/logging"
	"github.com/firefly-research/gatewayd/internal/metalog"
	"github.com/firefly-research/gatewayd/internal/metrics"
	"github.com/firefly-research/gatewayd/internal/sharedmem"
	"github.com/firefly-research/gatewayd/internal/transferbus"
	"github.com/firefly-research/gatewayd/internal/worker"
)

// State is the dispatcher's lifecycle stage (spec §4.4).
type State int32

const (
	StateCreated State = iota
	StateRunning
	StateStopping
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Dispatcher is the gateway's single event-loop-equivalent router.
type Dispatcher struct {
	cfg        *config.Config
	funcConfig *funcconfig.FuncConfig
	shm        *sharedmem.Manager
	registry   *Registry
	calls      *ExternalCallTable
	ids        *ids.Generator
	metrics    *metrics.Metrics
	health     *health.Handler
	log        *logging.Logger

	metalogBase *metalog.LogSpaceBase
	index       *index.Coordinator

	state atomic.Int32

	handlersMu sync.RWMutex
	handlers   []handlerEntry

	httpServer *http.Server
	grpcServer *http.Server

	ipcListener net.Listener
	ipcBus      *transferbus.Bus
	ipcPool     *worker.Pool

	stopOnce sync.Once
	stopped  chan struct{}
}

// New constructs a dispatcher in the Created state. Handlers may be
// registered until Start is called.
func New(cfg *config.Config, fc *funcconfig.FuncConfig, shm *sharedmem.Manager, m *metrics.Metrics) *Dispatcher {
	numShards := 1
	if cfg != nil {
		numShards = cfg.NumIndexShards
	}
	metalogBase := metalog.NewLogSpaceBase(0, 0)
	idx := index.NewCoordinator(metalogBase, numShards)
	idx.AttachMetrics(m)

	d := &Dispatcher{
		cfg:         cfg,
		funcConfig:  fc,
		shm:         shm,
		registry:    NewRegistry(),
		calls:       NewExternalCallTable(),
		ids:         ids.NewGenerator(),
		metrics:     m,
		health:      health.NewHandler(),
		log:         logging.NewLogger("dispatcher"),
		metalogBase: metalogBase,
		index:       idx,
		stopped:     make(chan struct{}),
	}
	d.health.AddCheck("dispatcher_running", func() (bool, string) {
		if d.State() == StateRunning {
			return true, ""
		}
		return false, d.State().String()
	})
	d.health.AddCheck("index_coordinator", func() (bool, string) {
		return true, fmt.Sprintf("metalog_position=%d", d.index.IndexedMetalogPosition())
	})
	d.registerBuiltins()
	return d
}

func (d *Dispatcher) serveMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(d.metrics.Snapshot())
}

// State returns the dispatcher's current lifecycle stage.
func (d *Dispatcher) State() State { return State(d.state.Load()) }

// RegisterSyncRequestHandler adds a handler whose callback produces the
// full response. Must be called before Start (spec §4.4).
func (d *Dispatcher) RegisterSyncRequestHandler(matcher Matcher, handler SyncHandler) error {
	if d.State() != StateCreated {
		return fmt.Errorf("gateway: cannot register handlers after Start")
	}
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers = append(d.handlers, handlerEntry{matcher: matcher, sync: handler})
	return nil
}

// RegisterAsyncRequestHandler adds a handler that may suspend across an
// awaited watchdog completion. Must be called before Start.
func (d *Dispatcher) RegisterAsyncRequestHandler(matcher Matcher, handler AsyncHandler) error {
	if d.State() != StateCreated {
		return fmt.Errorf("gateway: cannot register handlers after Start")
	}
	d.handlersMu.Lock()
	defer d.handlersMu.Unlock()
	d.handlers = append(d.handlers, handlerEntry{matcher: matcher, async: handler})
	return nil
}

// registerBuiltins installs the fixed routes spec §4.4 and §6 require:
// GET /hello, POST /shutdown, and POST /function/<name> for every name
// FuncConfig knows about. Unknown function names simply never match, so
// they fall through to the generic 404 (spec §4.4: "unknown... return
// 404 at matcher time").
func (d *Dispatcher) registerBuiltins() {
	d.handlers = append(d.handlers,
		handlerEntry{
			matcher: func(method, path string) bool { return method == http.MethodGet && path == "/hello" },
			sync: func(req *Request) Response {
				return Response{Status: http.StatusOK, Body: []byte("Hello world\n")}
			},
		},
		handlerEntry{
			matcher: func(method, path string) bool { return method == http.MethodPost && path == "/shutdown" },
			sync: func(req *Request) Response {
				go d.ScheduleStop()
				return Response{Status: http.StatusOK, Body: []byte("Server is shutting down\n")}
			},
		},
		handlerEntry{
			matcher: func(method, path string) bool {
				if method != http.MethodPost || !strings.HasPrefix(path, "/function/") {
					return false
				}
				name := strings.TrimPrefix(path, "/function/")
				_, ok := d.funcConfig.Lookup(name)
				return ok
			},
			async: d.handleFunctionCall,
		},
		handlerEntry{
			matcher: func(method, path string) bool { return method == http.MethodPost && path == "/index/query" },
			sync:    d.handleIndexQuery,
		},
	)
}

// Start loads shared-memory directory state, spawns the IPC worker pool,
// binds every listener, and begins serving (spec §4.4).
func (d *Dispatcher) Start() error {
	if d.State() != StateCreated {
		return fmt.Errorf("gateway: Start called in state %s", d.State())
	}

	if err := d.shm.ResetDir(); err != nil {
		return gwerrors.FatalInitSharedMem("reset shared memory directory").WithCause(err)
	}

	d.ipcBus = transferbus.New(d.cfg.IPCWorkers, d.cfg.GatewayConnPerWorker)
	d.ipcPool = worker.NewPool(d.ipcBus, d.runIPCConnection)
	d.ipcPool.Start()

	ipcListener, err := net.Listen("unix", d.cfg.IPCPath)
	if err != nil {
		return gwerrors.FatalInitBind(fmt.Sprintf("listen ipc %s", d.cfg.IPCPath)).WithCause(err)
	}
	d.ipcListener = ipcListener
	go d.acceptIPC()

	mux := http.NewServeMux()
	mux.HandleFunc("/", d.serveHTTP)
	mux.Handle("/healthz", d.health)
	mux.HandleFunc("/metrics", d.serveMetrics)
	d.httpServer = &http.Server{Addr: d.cfg.HTTPAddr, Handler: mux}
	httpLn, err := net.Listen("tcp", d.cfg.HTTPAddr)
	if err != nil {
		return gwerrors.FatalInitBind(fmt.Sprintf("listen http %s", d.cfg.HTTPAddr)).WithCause(err)
	}
	go func() {
		if err := d.httpServer.Serve(httpLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("http server exited", "error", err)
		}
	}()

	grpcMux := http.NewServeMux()
	grpcMux.HandleFunc("/", d.serveGRPC)
	d.grpcServer = &http.Server{Addr: d.cfg.GRPCAddr, Handler: grpcMux}
	grpcLn, err := net.Listen("tcp", d.cfg.GRPCAddr)
	if err != nil {
		return gwerrors.FatalInitBind(fmt.Sprintf("listen grpc %s", d.cfg.GRPCAddr)).WithCause(err)
	}
	go func() {
		if err := d.grpcServer.Serve(grpcLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.log.Error("grpc facade server exited", "error", err)
		}
	}()

	d.state.Store(int32(StateRunning))
	d.log.Info("dispatcher started", "http_addr", d.cfg.HTTPAddr, "grpc_addr", d.cfg.GRPCAddr, "ipc_path", d.cfg.IPCPath)
	return nil
}

func (d *Dispatcher) acceptIPC() {
	lane := 0
	for {
		conn, err := d.ipcListener.Accept()
		if err != nil {
			return
		}
		connID := d.ids.NextConnectionID()
		numLanes := d.ipcBus.NumLanes()
		if err := d.ipcBus.Send(lane, transferbus.Handoff{ConnectionID: connID, Conn: conn}); err != nil {
			d.log.Error("failed to hand off ipc connection", "error", err)
			conn.Close()
		}
		lane = (lane + 1) % numLanes
	}
}

// ScheduleStop transitions Running -> Stopping and tears down listeners
// and worker pools. Re-entering Stopping is a no-op (spec §4.4).
func (d *Dispatcher) ScheduleStop() {
	d.stopOnce.Do(func() {
		d.state.Store(int32(StateStopping))
		d.log.Info("dispatcher stopping")

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if d.httpServer != nil {
			d.httpServer.Shutdown(ctx)
		}
		if d.grpcServer != nil {
			d.grpcServer.Shutdown(ctx)
		}
		if d.ipcListener != nil {
			d.ipcListener.Close()
		}
		if d.ipcPool != nil {
			d.ipcPool.ScheduleStop()
			for i := 0; i < d.ipcBus.NumLanes(); i++ {
				d.ipcBus.CloseLane(i)
			}
			d.ipcPool.WaitForFinish()
		}

		d.state.Store(int32(StateStopped))
		close(d.stopped)
	})
}

// WaitForFinish blocks until ScheduleStop has completed teardown.
func (d *Dispatcher) WaitForFinish() {
	<-d.stopped
}
