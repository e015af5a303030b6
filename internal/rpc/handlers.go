package rpc

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/leapstack-labs/varlens/internal/provider/yamlvars"
	"github.com/leapstack-labs/varlens/pkg/vars"
)

// --- Document lifecycle ---

func (s *Server) handleDocumentOpen(msg *JSONRPCMessage) error {
	var params DocumentOpenParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	s.documents.Open(params.URI, params.Content, params.Version)

	hasProvider := s.selectProvider(params.URI, params.Content)

	v := &view{scope: vars.NewRootScope(params.URI)}
	v.source = vars.NewSource(s.registry, s.pageSize, s.logger)

	s.viewsMu.Lock()
	s.views[params.URI] = v
	s.viewsMu.Unlock()

	s.logger.Info("document opened", "uri", params.URI, "session", v.scope.SessionID, "provider", hasProvider)
	s.sendResponse(msg.ID, DocumentOpenResult{
		SessionID:   v.scope.SessionID,
		HasProvider: hasProvider,
	}, nil)
	return nil
}

func (s *Server) handleDocumentUpdate(msg *JSONRPCMessage) error {
	var params DocumentUpdateParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	if !s.documents.Update(params.URI, params.Content, params.Version) {
		s.sendResponse(msg.ID, nil, &JSONRPCError{
			Code:    codeRequestFailed,
			Message: "document not open or stale version: " + params.URI,
		})
		return nil
	}

	// Inline documents get their provider rebuilt from the new content.
	if p, ok := s.registry.For(params.URI).(*yamlvars.Provider); ok {
		if err := p.Reload([]byte(params.Content)); err != nil {
			s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeRequestFailed, Message: err.Error()})
			return nil
		}
	}

	s.sendResponse(msg.ID, nil, nil)
	return nil
}

func (s *Server) handleDocumentClose(msg *JSONRPCMessage) error {
	var params DocumentCloseParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	s.viewsMu.Lock()
	if v, ok := s.views[params.URI]; ok {
		v.source.Cancel()
		delete(s.views, params.URI)
	}
	s.viewsMu.Unlock()

	s.registry.Unregister(params.URI)
	s.documents.Close(params.URI)
	s.unwatch(params.URI)

	s.sendResponse(msg.ID, nil, nil)
	return nil
}

// --- Variables ---

func (s *Server) handleHasChildren(msg *JSONRPCMessage) error {
	var params HasChildrenParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	v := s.view(params.URI)
	if v == nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeRequestFailed, Message: "document not open: " + params.URI})
		return nil
	}

	el := s.toElement(v, params.URI, params.Element)
	s.sendResponse(msg.ID, HasChildrenResult{HasChildren: v.source.HasChildren(el)}, nil)
	return nil
}

func (s *Server) handleChildren(msg *JSONRPCMessage) error {
	var params ChildrenParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	v := s.view(params.URI)
	if v == nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeRequestFailed, Message: "document not open: " + params.URI})
		return nil
	}

	children, err := v.source.GetChildren(context.Background(), s.toElement(v, params.URI, params.Element))
	if err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeRequestFailed, Message: err.Error()})
		return nil
	}

	nodes := make([]Element, 0, len(children))
	for _, c := range children {
		nodes = append(nodes, fromVariable(c))
	}
	s.sendResponse(msg.ID, ChildrenResult{Nodes: nodes}, nil)
	return nil
}

func (s *Server) handleCancel(msg *JSONRPCMessage) error {
	var params CancelParams
	if err := json.Unmarshal(msg.Params, &params); err != nil {
		s.sendResponse(msg.ID, nil, &JSONRPCError{Code: codeInvalidParams, Message: err.Error()})
		return err
	}

	if v := s.view(params.URI); v != nil {
		v.source.Cancel()
	}

	// Cancelling an unknown view is a no-op, not an error.
	s.sendResponse(msg.ID, nil, nil)
	return nil
}

// --- Helpers ---

// view returns the view for uri, or nil when the document is not open.
func (s *Server) view(uri string) *view {
	s.viewsMu.RLock()
	defer s.viewsMu.RUnlock()
	return s.views[uri]
}

// selectProvider builds and registers a provider for the document, from
// inline content or from disk for file URIs. Documents the server cannot
// inspect simply get no provider; their views read as empty.
func (s *Server) selectProvider(uri, content string) bool {
	switch {
	case content != "":
		p, err := yamlvars.Parse([]byte(content))
		if err != nil {
			s.logger.Warn("cannot parse document", "uri", uri, "error", err)
			return false
		}
		s.registry.Register(uri, p)
		return true

	case strings.HasPrefix(uri, "file://"):
		path := strings.TrimPrefix(uri, "file://")
		p, err := yamlvars.Load(path)
		if err != nil {
			s.logger.Warn("cannot load document", "uri", uri, "error", err)
			return false
		}
		s.registry.Register(uri, p)
		s.watch(uri, path)
		return true

	default:
		return false
	}
}

// watch starts watching a file-backed document for on-disk changes.
func (s *Server) watch(uri, path string) {
	if s.watcher == nil {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	s.watchedMu.Lock()
	s.watched[abs] = uri
	s.watchedMu.Unlock()

	if err := s.watcher.Add(abs); err != nil {
		s.logger.Warn("cannot watch document", "path", abs, "error", err)
	}
}

// unwatch stops watching the document backing uri, if any.
func (s *Server) unwatch(uri string) {
	if s.watcher == nil {
		return
	}

	s.watchedMu.Lock()
	defer s.watchedMu.Unlock()
	for path, watchedURI := range s.watched {
		if watchedURI == uri {
			delete(s.watched, path)
			_ = s.watcher.Remove(path)
			return
		}
	}
}

// handleFileChanged reloads the provider of a changed document and tells
// the client to re-fetch from the root.
func (s *Server) handleFileChanged(path string) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}

	s.watchedMu.Lock()
	uri, ok := s.watched[abs]
	s.watchedMu.Unlock()
	if !ok {
		return
	}

	p, ok := s.registry.For(uri).(*yamlvars.Provider)
	if !ok {
		return
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		s.logger.Warn("reload after change failed", "uri", uri, "error", err)
		return
	}
	if err := p.Reload(content); err != nil {
		s.logger.Warn("reload after change failed", "uri", uri, "error", err)
		return
	}

	s.logger.Debug("document changed on disk", "uri", uri)
	s.sendNotification("variables/didChange", DidChangeParams{URI: uri})
}

// toElement converts a wire element into a tree element of v's view.
func (s *Server) toElement(v *view, uri string, ref Element) vars.Element {
	if ref.Kind == "root" || ref.Kind == "" {
		return v.scope
	}
	return &vars.Variable{
		ID:               ref.ID,
		URI:              uri,
		ExtHostID:        ref.ExtHostID,
		Name:             ref.Name,
		Value:            ref.Value,
		Type:             ref.Type,
		IndexedCount:     ref.IndexedCount,
		IndexStart:       ref.IndexStart,
		HasNamedChildren: ref.HasNamedChildren,
	}
}

// fromVariable converts a tree node into its wire representation.
func fromVariable(v *vars.Variable) Element {
	return Element{
		Kind:             string(v.Kind()),
		ID:               v.ID,
		ExtHostID:        v.ExtHostID,
		Name:             v.Name,
		Value:            v.Value,
		Type:             v.Type,
		IndexedCount:     v.IndexedCount,
		IndexStart:       v.IndexStart,
		HasNamedChildren: v.HasNamedChildren,
	}
}
