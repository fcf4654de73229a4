// Package server exposes the engine over HTTP: session lifecycle endpoints,
// a chat event stream per session, and a one-shot workflow execution
// endpoint streaming flow events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/jong-choi/langflow/core/chatflow"
	"github.com/jong-choi/langflow/core/engine"
	"github.com/jong-choi/langflow/core/graph"
	"github.com/jong-choi/langflow/core/graphstore"
	"github.com/jong-choi/langflow/core/session"
	"github.com/jong-choi/langflow/core/state"
	"github.com/jong-choi/langflow/providers/observability"
)

// Server wires the session registry, the reusable chat flow, and the static
// workflow handler registry behind an http.Handler.
type Server struct {
	sessions *session.Registry
	flow     *chatflow.Flow
	registry *engine.Registry
	graphs   graphstore.Store
	credit   CreditGate
	obs      observability.Provider
	logger   zerolog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCreditGate installs the credit-accounting collaborator.
func WithCreditGate(gate CreditGate) Option {
	return func(server *Server) { server.credit = gate }
}

// WithGraphStore installs the persisted-graph collaborator.
func WithGraphStore(store graphstore.Store) Option {
	return func(server *Server) { server.graphs = store }
}

// WithObservability sets the observability provider.
func WithObservability(provider observability.Provider) Option {
	return func(server *Server) { server.obs = provider }
}

// WithLogger sets the request logger.
func WithLogger(logger zerolog.Logger) Option {
	return func(server *Server) { server.logger = logger }
}

// New creates a server over its collaborators.
func New(sessions *session.Registry, flow *chatflow.Flow, registry *engine.Registry, opts ...Option) *Server {
	server := &Server{
		sessions: sessions,
		flow:     flow,
		registry: registry,
		graphs:   graphstore.NewMemoryStore(),
		credit:   allowAll{},
		obs:      observability.Noop{},
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(server)
	}
	return server
}

// Handler builds the route table.
func (server *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/sessions", server.handleCreateSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", server.handleDeleteSession)
	mux.HandleFunc("POST /api/sessions/{id}/messages", server.handleSendMessage)
	mux.HandleFunc("GET /api/sessions/{id}/stream", server.handleChatStream)
	mux.HandleFunc("POST /api/workflow/run", server.handleWorkflowRun)
	mux.HandleFunc("POST /api/graphs", server.handleSaveGraph)
	mux.HandleFunc("POST /api/graphs/{id}/run", server.handleGraphRun)
	return server.logRequests(mux)
}

func (server *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		server.logger.Info().
			Str("method", request.Method).
			Str("path", request.URL.Path).
			Msg("request")
		next.ServeHTTP(writer, request)
	})
}

// --- session lifecycle ---

func (server *Server) handleCreateSession(writer http.ResponseWriter, request *http.Request) {
	created := server.sessions.Create()
	writeJSON(writer, http.StatusCreated, map[string]string{"sessionId": created.ID})
}

func (server *Server) handleDeleteSession(writer http.ResponseWriter, request *http.Request) {
	sessionID := request.PathValue("id")
	if err := server.sessions.Remove(request.Context(), sessionID); err != nil {
		writeSessionError(writer, err)
		return
	}
	writer.WriteHeader(http.StatusNoContent)
}

type sendMessageRequest struct {
	Message string `json:"message"`
}

// handleSendMessage stores the next input against the session and returns an
// acceptance acknowledgement, not the result. The result arrives on the
// session's stream.
func (server *Server) handleSendMessage(writer http.ResponseWriter, request *http.Request) {
	sessionID := request.PathValue("id")

	var body sendMessageRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil || body.Message == "" {
		writeError(writer, http.StatusBadRequest, "message is required")
		return
	}

	if err := server.sessions.Submit(request.Context(), sessionID, body.Message); err != nil {
		writeSessionError(writer, err)
		return
	}
	writeJSON(writer, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// handleChatStream opens the streaming response and drives the routing graph
// against the session's stored input.
func (server *Server) handleChatStream(writer http.ResponseWriter, request *http.Request) {
	sessionID := request.PathValue("id")
	ctx := request.Context()

	if err := server.checkCredit(ctx, sessionID); err != nil {
		writeError(writer, http.StatusPaymentRequired, err.Error())
		return
	}

	active, payload, err := server.sessions.BeginRun(ctx, sessionID)
	if err != nil {
		writeSessionError(writer, err)
		return
	}
	defer server.sessions.EndRun(context.WithoutCancel(ctx), sessionID)

	sse, err := newSSEWriter(writer)
	if err != nil {
		writeError(writer, http.StatusInternalServerError, err.Error())
		return
	}

	applyErr := active.Store.Apply(state.Update{
		state.ChannelMessages: state.Message{Role: state.RoleHuman, Content: payload},
	})
	if applyErr != nil {
		sse.send(engine.ChatEvent{Name: "session", Event: engine.EventChatStatus, Message: "error: " + applyErr.Error()})
		return
	}

	runErr := server.flow.Run(ctx, active.Store, func(event engine.ChatEvent) {
		sse.send(event)
	})
	if runErr != nil {
		server.logger.Error().Err(runErr).Str("session_id", sessionID).Msg("chat run failed")
		sse.send(engine.ChatEvent{Name: "session", Event: engine.EventChatStatus, Message: "error: " + runErr.Error()})
		return
	}
	sse.send(engine.ChatEvent{Name: "session", Event: engine.EventChatStatus, Message: "completed"})
}

// --- workflow execution ---

type workflowRequest struct {
	Prompt string         `json:"prompt"`
	Nodes  []workflowNode `json:"nodes"`
	Edges  []graph.Edge   `json:"edges"`
}

type workflowNode struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Position map[string]any `json:"position,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// handleWorkflowRun executes a user-authored graph once, streaming progress
// until flow_complete or flow_error.
func (server *Server) handleWorkflowRun(writer http.ResponseWriter, request *http.Request) {
	ctx := request.Context()

	var body workflowRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeError(writer, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := server.checkCredit(ctx, clientKey(request)); err != nil {
		writeError(writer, http.StatusPaymentRequired, err.Error())
		return
	}

	nodes := make([]graph.Node, len(body.Nodes))
	for index, node := range body.Nodes {
		nodes[index] = graph.Node{ID: node.ID, Type: graph.NodeType(node.Type), Config: node.Data}
	}

	server.streamGraphRun(ctx, writer, body.Prompt, nodes, body.Edges)
}

// handleSaveGraph persists an authored graph for later execution by id.
func (server *Server) handleSaveGraph(writer http.ResponseWriter, request *http.Request) {
	var persisted graphstore.PersistedGraph
	if err := json.NewDecoder(request.Body).Decode(&persisted); err != nil || persisted.ID == "" {
		writeError(writer, http.StatusBadRequest, "graph with an id is required")
		return
	}

	if err := server.graphs.Save(request.Context(), persisted); err != nil {
		writeError(writer, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(writer, http.StatusCreated, map[string]string{"graphId": persisted.ID})
}

type graphRunRequest struct {
	Prompt string `json:"prompt"`
}

// handleGraphRun loads a persisted graph, translates it into compiler input,
// and executes it with the same streaming contract as the ad-hoc endpoint.
func (server *Server) handleGraphRun(writer http.ResponseWriter, request *http.Request) {
	graphID := request.PathValue("id")
	ctx := request.Context()

	var body graphRunRequest
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeError(writer, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := server.checkCredit(ctx, clientKey(request)); err != nil {
		writeError(writer, http.StatusPaymentRequired, err.Error())
		return
	}

	persisted, err := server.graphs.Load(ctx, graphID)
	if err != nil {
		writeError(writer, http.StatusNotFound, err.Error())
		return
	}

	nodes, edges := graphstore.Translate(persisted)
	server.streamGraphRun(ctx, writer, body.Prompt, nodes, edges)
}

// streamGraphRun compiles and executes a graph, streaming flow events until
// the run settles. Compilation failures surface as a single flow_error event
// before any node executes.
func (server *Server) streamGraphRun(ctx context.Context, writer http.ResponseWriter, prompt string, nodes []graph.Node, edges []graph.Edge) {
	sse, err := newSSEWriter(writer)
	if err != nil {
		writeError(writer, http.StatusInternalServerError, err.Error())
		return
	}

	compiled, err := engine.Compile(nodes, edges, server.registry)
	if err != nil {
		sse.send(engine.FlowEvent{Event: engine.EventFlowError, Error: err.Error()})
		return
	}

	store := state.NewStore()
	if prompt != "" {
		applyErr := store.Apply(state.Update{
			state.ChannelMessages: state.Message{Role: state.RoleHuman, Content: prompt},
		})
		if applyErr != nil {
			sse.send(engine.FlowEvent{Event: engine.EventFlowError, Error: applyErr.Error()})
			return
		}
	}

	runner := engine.NewRunner(compiled, store,
		engine.WithFlowEmitter(func(event engine.FlowEvent) { sse.send(event) }),
		engine.WithObservability(server.obs))

	if err := runner.Run(ctx); err != nil {
		server.logger.Error().Err(err).Msg("workflow run failed")
	}
}

// --- helpers ---

func (server *Server) checkCredit(ctx context.Context, key string) error {
	if err := server.credit.Allow(ctx, key); err != nil {
		return err
	}
	return server.credit.Debit(ctx, key)
}

func clientKey(request *http.Request) string {
	return request.RemoteAddr
}

func writeJSON(writer http.ResponseWriter, status int, body any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	_ = json.NewEncoder(writer).Encode(body)
}

func writeError(writer http.ResponseWriter, status int, reason string) {
	writeJSON(writer, status, map[string]string{"error": reason})
}

func writeSessionError(writer http.ResponseWriter, err error) {
	var sessionErr *session.Error
	if errors.As(err, &sessionErr) {
		status := http.StatusConflict
		if sessionErr.Reason == "unknown or expired" {
			status = http.StatusNotFound
		}
		writeError(writer, status, sessionErr.Error())
		return
	}
	writeError(writer, http.StatusInternalServerError, err.Error())
}
