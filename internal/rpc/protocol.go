package rpc

import "encoding/json"

// JSONRPCMessage represents a JSON-RPC 2.0 message.
type JSONRPCMessage struct {
	JSONRPC string           `json:"jsonrpc"`
	ID      *json.RawMessage `json:"id,omitempty"`
	Method  string           `json:"method,omitempty"`
	Params  json.RawMessage  `json:"params,omitempty"`
	Result  json.RawMessage  `json:"result,omitempty"`
	Error   *JSONRPCError    `json:"error,omitempty"`
}

// JSONRPCError represents a JSON-RPC error.
type JSONRPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// JSON-RPC error codes used by the server.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeInternalError  = -32603
	codeRequestFailed  = -32000
)

// Element is the wire representation of a tree element, used both to
// address a node in requests and to return nodes to the client.
type Element struct {
	Kind             string `json:"kind"` // "root" or "variable"
	ID               string `json:"id,omitempty"`
	ExtHostID        int64  `json:"extHostId,omitempty"`
	Name             string `json:"name,omitempty"`
	Value            string `json:"value,omitempty"`
	Type             string `json:"type,omitempty"`
	IndexedCount     int    `json:"indexedCount,omitempty"`
	IndexStart       *int   `json:"indexStart,omitempty"`
	HasNamedChildren bool   `json:"hasNamedChildren,omitempty"`
}

// InitializeParams is sent by the client as the first request.
type InitializeParams struct {
	ClientName string `json:"clientName,omitempty"`
}

// InitializeResult announces the server's capabilities.
type InitializeResult struct {
	ServerInfo   ServerInfo         `json:"serverInfo"`
	Capabilities ServerCapabilities `json:"capabilities"`
}

// ServerInfo identifies the server implementation.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ServerCapabilities lists what the server supports.
type ServerCapabilities struct {
	VariablesProvider bool `json:"variablesProvider"`
	PageSize          int  `json:"pageSize"`
}

// DocumentOpenParams opens a document and creates its variable view.
// Content carries the document inline; when empty and the URI has a file
// scheme, the server reads the file from disk instead.
type DocumentOpenParams struct {
	URI     string `json:"uri"`
	Content string `json:"content,omitempty"`
	Version int    `json:"version,omitempty"`
}

// DocumentOpenResult reports the session created for the view.
type DocumentOpenResult struct {
	SessionID   string `json:"sessionId"`
	HasProvider bool   `json:"hasProvider"`
}

// DocumentUpdateParams replaces an open document's content.
type DocumentUpdateParams struct {
	URI     string `json:"uri"`
	Content string `json:"content"`
	Version int    `json:"version"`
}

// DocumentCloseParams closes a document and discards its view.
type DocumentCloseParams struct {
	URI string `json:"uri"`
}

// HasChildrenParams asks whether an element is expandable.
type HasChildrenParams struct {
	URI     string  `json:"uri"`
	Element Element `json:"element"`
}

// HasChildrenResult answers HasChildrenParams.
type HasChildrenResult struct {
	HasChildren bool `json:"hasChildren"`
}

// ChildrenParams requests one level of children under an element.
type ChildrenParams struct {
	URI     string  `json:"uri"`
	Element Element `json:"element"`
}

// ChildrenResult carries the ordered child nodes.
type ChildrenResult struct {
	Nodes []Element `json:"nodes"`
}

// CancelParams revokes the cancellation handle of a document's view.
type CancelParams struct {
	URI string `json:"uri"`
}

// DidChangeParams notifies the client that a watched document changed on
// disk and its tree should be re-fetched from the root.
type DidChangeParams struct {
	URI string `json:"uri"`
}
