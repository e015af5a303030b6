// Package rpc serves a document's variable tree to an editor host over
// JSON-RPC 2.0 with Content-Length framing, usually on stdio. The host
// opens documents, asks for children level by level, and cancels pending
// fetches; the server keeps one lazy view per open document.
package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/varlens/internal/provider"
	"github.com/leapstack-labs/varlens/pkg/vars"
)

// Version is the protocol server version reported to clients.
const Version = "0.1.0"

// view is one document's lazy variable tree: the synthetic root plus the
// source that materializes levels beneath it.
type view struct {
	scope  *vars.RootScope
	source *vars.Source
}

// Options configures a Server.
type Options struct {
	// PageSize is applied to every view created by this server and stays
	// fixed for each view's lifetime.
	PageSize int
	// Watch re-reads file-backed documents when they change on disk and
	// pushes variables/didChange notifications.
	Watch bool
	// Logger defaults to a text handler on stderr.
	Logger *slog.Logger
}

// Server implements the variables host protocol.
type Server struct {
	documents *provider.DocumentStore
	registry  *provider.Registry

	views   map[string]*view
	viewsMu sync.RWMutex

	pageSize int

	// File watching (nil when disabled)
	watcher   *fsnotify.Watcher
	watched   map[string]string // absolute path -> document URI
	watchedMu sync.Mutex

	reader  *bufio.Reader
	writer  io.Writer
	writeMu sync.Mutex

	logger *slog.Logger

	shutdown   bool
	shutdownMu sync.RWMutex
}

// NewServer creates a server reading requests from r and writing responses
// to w.
func NewServer(r io.Reader, w io.Writer, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = vars.DefaultPageSize
	}

	s := &Server{
		documents: provider.NewDocumentStore(),
		registry:  provider.NewRegistry(logger),
		views:     make(map[string]*view),
		pageSize:  pageSize,
		reader:    bufio.NewReader(r),
		writer:    w,
		logger:    logger,
	}

	if opts.Watch {
		watcher, err := fsnotify.NewWatcher()
		if err != nil {
			logger.Warn("file watching disabled", "error", err)
		} else {
			s.watcher = watcher
			s.watched = make(map[string]string)
		}
	}

	return s
}

// Run processes requests until the client disconnects, exit is requested,
// or ctx is cancelled. The read loop and the file watcher are supervised
// together; either one failing stops the server.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info("varlens server starting", "pageSize", s.pageSize, "watch", s.watcher != nil)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		defer cancel()
		return s.readLoop()
	})
	eg.Go(func() error {
		defer cancel()
		return s.watchLoop(ctx)
	})

	err := eg.Wait()
	if s.watcher != nil {
		_ = s.watcher.Close()
	}
	return err
}

// readLoop reads and dispatches messages until EOF or shutdown.
func (s *Server) readLoop() error {
	for {
		s.shutdownMu.RLock()
		done := s.shutdown
		s.shutdownMu.RUnlock()
		if done {
			return nil
		}

		msg, err := s.readMessage()
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
				s.logger.Info("client disconnected")
				return nil
			}
			s.logger.Error("error reading message", "error", err)
			continue
		}

		if err := s.handleMessage(msg); err != nil {
			s.logger.Error("error handling message", "method", msg.Method, "error", err)
		}
	}
}

// watchLoop forwards filesystem events for watched documents. With
// watching disabled it just waits for shutdown.
func (s *Server) watchLoop(ctx context.Context) error {
	if s.watcher == nil {
		<-ctx.Done()
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-s.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				s.handleFileChanged(event.Name)
			}
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("watch error", "error", err)
		}
	}
}

// readMessage reads one Content-Length framed JSON-RPC message.
func (s *Server) readMessage() (*JSONRPCMessage, error) {
	var contentLength int
	for {
		line, err := s.reader.ReadString('\n')
		if err != nil {
			return nil, err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			break // End of headers
		}

		if strings.HasPrefix(line, "Content-Length: ") {
			lengthStr := strings.TrimPrefix(line, "Content-Length: ")
			contentLength, err = strconv.Atoi(lengthStr)
			if err != nil {
				return nil, fmt.Errorf("invalid Content-Length: %w", err)
			}
		}
	}

	if contentLength == 0 {
		return nil, fmt.Errorf("missing Content-Length header")
	}

	body := make([]byte, contentLength)
	if _, err := io.ReadFull(s.reader, body); err != nil {
		return nil, fmt.Errorf("error reading body: %w", err)
	}

	var msg JSONRPCMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return nil, fmt.Errorf("error parsing message: %w", err)
	}

	return &msg, nil
}

// sendResponse sends a JSON-RPC response.
func (s *Server) sendResponse(id *json.RawMessage, result any, rpcErr *JSONRPCError) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		ID:      id,
	}

	if rpcErr != nil {
		msg.Error = rpcErr
	} else {
		resultBytes, _ := json.Marshal(result)
		msg.Result = resultBytes
	}

	s.writeMessage(&msg)
}

// sendNotification sends a JSON-RPC notification (no ID).
func (s *Server) sendNotification(method string, params any) {
	msg := JSONRPCMessage{
		JSONRPC: "2.0",
		Method:  method,
	}

	if params != nil {
		paramsBytes, _ := json.Marshal(params)
		msg.Params = paramsBytes
	}

	s.writeMessage(&msg)
}

// writeMessage writes one framed message to the output stream.
func (s *Server) writeMessage(msg *JSONRPCMessage) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	body, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("error marshaling message", "error", err)
		return
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	_, _ = s.writer.Write([]byte(header))
	_, _ = s.writer.Write(body)
}

// handleMessage dispatches a message to the appropriate handler.
func (s *Server) handleMessage(msg *JSONRPCMessage) error {
	s.logger.Debug("received", "method", msg.Method)

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(msg)
	case "shutdown":
		return s.handleShutdown(msg)
	case "exit":
		return s.handleExit(msg)
	case "document/open":
		return s.handleDocumentOpen(msg)
	case "document/update":
		return s.handleDocumentUpdate(msg)
	case "document/close":
		return s.handleDocumentClose(msg)
	case "variables/hasChildren":
		return s.handleHasChildren(msg)
	case "variables/children":
		return s.handleChildren(msg)
	case "variables/cancel":
		return s.handleCancel(msg)
	default:
		if msg.ID != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{
				Code:    codeMethodNotFound,
				Message: "Method not found: " + msg.Method,
			})
		}
		return nil
	}
}

func (s *Server) handleInitialize(msg *JSONRPCMessage) error {
	var params InitializeParams
	if len(msg.Params) > 0 {
		if err := json.Unmarshal(msg.Params, &params); err != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
			return err
		}
	}

	if params.ClientName != "" {
		s.logger.Info("client connected", "client", params.ClientName)
	}

	s.sendResponse(msg.ID, InitializeResult{
		ServerInfo: ServerInfo{Name: "varlens", Version: Version},
		Capabilities: ServerCapabilities{
			VariablesProvider: true,
			PageSize:          s.pageSize,
		},
	}, nil)
	return nil
}

func (s *Server) handleShutdown(msg *JSONRPCMessage) error {
	s.shutdownMu.Lock()
	s.shutdown = true
	s.shutdownMu.Unlock()

	s.sendResponse(msg.ID, nil, nil)
	return nil
}

func (s *Server) handleExit(_ *JSONRPCMessage) error {
	s.shutdownMu.Lock()
	s.shutdown = true
	s.shutdownMu.Unlock()
	return nil
}
