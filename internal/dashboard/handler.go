package dashboard

import (
	"encoding/json"
	"log"
	"time"

	"github.com/daybook-app/daybook/internal/engine"
	"github.com/daybook-app/daybook/internal/schema"
)

// Handler formats daemon events as dashboard messages. It implements
// engine.Broadcaster, bridging between the sync daemon and the WebSocket
// server.
type Handler struct {
	server *Server
	logger *log.Logger
}

// NewHandler creates a new event handler connected to a dashboard server
func NewHandler(server *Server, logger *log.Logger) *Handler {
	if logger == nil {
		logger = log.Default()
	}
	return &Handler{
		server: server,
		logger: logger,
	}
}

// StatusChanged handles sync status transitions
func (h *Handler) StatusChanged(status engine.Status) {
	h.logger.Printf("Sync status: %s", status)

	data := StatusChangeData{Status: string(status)}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal status data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStatusChange,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// StoreChanged handles dataset mutations
func (h *Handler) StoreChanged(counts map[schema.Kind]int) {
	data := StoreChangeData{Counts: make(map[string]int, len(counts))}
	for kind, n := range counts {
		data.Counts[string(kind)] = n
		data.Total += n
	}

	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal store data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeStoreChange,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}

// SyncComplete handles sync cycle completions
func (h *Handler) SyncComplete(duration time.Duration) {
	h.logger.Printf("Sync cycle finished in %v", duration)

	data := SyncCompleteData{Duration: duration}
	dataJSON, err := json.Marshal(data)
	if err != nil {
		h.logger.Printf("Failed to marshal sync data: %v", err)
		return
	}

	h.server.Broadcast(Message{
		Type:      MessageTypeSyncComplete,
		Timestamp: time.Now(),
		Data:      dataJSON,
	})
}
