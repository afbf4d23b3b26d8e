package websocket

import (
	"encoding/json"
	"sync"

	"numislive/internal/domain"
	"numislive/internal/metrics"
	"numislive/pkg/logger"
)

// ConnectionManager tracks live websocket subscribers. Membership is
// ephemeral: a subscriber exists exactly as long as its connection.
type ConnectionManager struct {
	connections map[string]map[string]domain.WebSocketConnection // listingID -> userID -> connection
	userConns   map[string][]domain.WebSocketConnection          // userID -> connections
	mutex       sync.RWMutex
	log         logger.Logger
}

func NewConnectionManager(log logger.Logger) *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]map[string]domain.WebSocketConnection),
		userConns:   make(map[string][]domain.WebSocketConnection),
		log:         log,
	}
}

func (cm *ConnectionManager) RegisterConnection(userID, listingID string, conn domain.WebSocketConnection) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if cm.connections[listingID] == nil {
		cm.connections[listingID] = make(map[string]domain.WebSocketConnection)
	}

	// A re-join replaces the previous connection; drop it so the per-user
	// index and the gauge do not accumulate dead sockets.
	if old, exists := cm.connections[listingID][userID]; exists {
		if err := old.Close(); err != nil {
			cm.log.Error("Failed to close replaced connection", "user_id", userID,
				"listing_id", listingID, "error", err)
		}
		cm.dropUserConns(userID, listingID)
		metrics.WebSocketClients.Dec()
	}
	cm.connections[listingID][userID] = conn

	cm.userConns[userID] = append(cm.userConns[userID], conn)

	metrics.WebSocketClients.Inc()
	cm.log.Debug("Connection registered", "user_id", userID, "listing_id", listingID)
	return nil
}

func (cm *ConnectionManager) UnregisterConnection(userID, listingID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	if listingConns, exists := cm.connections[listingID]; exists {
		if _, had := listingConns[userID]; had {
			metrics.WebSocketClients.Dec()
		}
		delete(listingConns, userID)
		if len(listingConns) == 0 {
			delete(cm.connections, listingID)
		}
	}

	cm.dropUserConns(userID, listingID)

	cm.log.Debug("Connection unregistered", "user_id", userID, "listing_id", listingID)
	return nil
}

// dropUserConns removes a user's connections for one listing from the
// per-user index. Caller holds the write lock.
func (cm *ConnectionManager) dropUserConns(userID, listingID string) {
	userConnections, exists := cm.userConns[userID]
	if !exists {
		return
	}

	var kept []domain.WebSocketConnection
	for _, conn := range userConnections {
		if conn.ListingID() != listingID {
			kept = append(kept, conn)
		}
	}

	if len(kept) == 0 {
		delete(cm.userConns, userID)
	} else {
		cm.userConns[userID] = kept
	}
}

// CloseAndUnregisterConnections tears down every subscriber of a listing,
// used after the listing settles.
func (cm *ConnectionManager) CloseAndUnregisterConnections(listingID string) error {
	cm.mutex.Lock()
	defer cm.mutex.Unlock()

	listingConns, exists := cm.connections[listingID]
	if !exists {
		return nil
	}

	for userID, conn := range listingConns {
		if err := conn.Close(); err != nil {
			cm.log.Error("Failed to close connection", "user_id", userID,
				"listing_id", listingID, "error", err)
		}
		metrics.WebSocketClients.Dec()
		cm.dropUserConns(userID, listingID)
	}
	delete(cm.connections, listingID)

	cm.log.Info("Connections closed for listing", "listing_id", listingID)
	return nil
}

func (cm *ConnectionManager) connectionsForListing(listingID string) []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var connections []domain.WebSocketConnection
	for _, conn := range cm.connections[listingID] {
		connections = append(connections, conn)
	}
	return connections
}

func (cm *ConnectionManager) allConnections() []domain.WebSocketConnection {
	cm.mutex.RLock()
	defer cm.mutex.RUnlock()

	var connections []domain.WebSocketConnection
	for _, listingConns := range cm.connections {
		for _, conn := range listingConns {
			connections = append(connections, conn)
		}
	}
	return connections
}

func (cm *ConnectionManager) BroadcastToListing(listingID string, message interface{}) error {
	return cm.send(cm.connectionsForListing(listingID), message)
}

// BroadcastAll delivers to every live subscriber, whatever listing they are
// watching. Used for listing-removed and admin broadcasts.
func (cm *ConnectionManager) BroadcastAll(message interface{}) error {
	return cm.send(cm.allConnections(), message)
}

func (cm *ConnectionManager) NotifyUser(userID string, message interface{}) error {
	cm.mutex.RLock()
	connections := append([]domain.WebSocketConnection(nil), cm.userConns[userID]...)
	cm.mutex.RUnlock()

	return cm.send(connections, message)
}

func (cm *ConnectionManager) send(connections []domain.WebSocketConnection, message interface{}) error {
	// Validate the payload once up front; per-connection failures are logged
	// and skipped so one dead socket never blocks the rest.
	if _, err := json.Marshal(message); err != nil {
		return err
	}

	for _, conn := range connections {
		if err := conn.Send(message); err != nil {
			cm.log.Error("Failed to send message", "user_id", conn.UserID(),
				"listing_id", conn.ListingID(), "error", err)
		}
	}
	return nil
}
