package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/marmos91/sftpbox/pkg/adapter/sftp"
)

// ConnectionLister is satisfied by the SFTP adapter.
type ConnectionLister interface {
	Connections() []sftp.ConnectionInfo
}

// ConnectionHandler lists active SSH connections.
type ConnectionHandler struct {
	lister ConnectionLister
}

// NewConnectionHandler creates a connection handler. With a nil lister the
// list is always empty.
func NewConnectionHandler(lister ConnectionLister) *ConnectionHandler {
	return &ConnectionHandler{lister: lister}
}

func (h *ConnectionHandler) connections() []sftp.ConnectionInfo {
	if h.lister == nil {
		return []sftp.ConnectionInfo{}
	}
	conns := h.lister.Connections()
	if conns == nil {
		conns = []sftp.ConnectionInfo{}
	}
	return conns
}

// List handles GET /api/v1/connections.
func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	WriteJSONOK(w, h.connections())
}

// Get handles GET /api/v1/connections/{id}.
func (h *ConnectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	for _, c := range h.connections() {
		if c.ID == id {
			WriteJSONOK(w, c)
			return
		}
	}
	NotFound(w, "connection "+id+" not found")
}
