package websocket

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"numislive/internal/domain"
	"numislive/internal/services"
	"numislive/pkg/logger"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Handler upgrades watchers onto a listing's live channel. Joins are gated on
// the listing being open; the closed-state cache is consulted first to reject
// joins to settled listings without touching the store.
type Handler struct {
	bidService  *services.BidService
	listings    domain.ListingRepository
	stateCache  domain.ListingStateCache
	connManager domain.ConnectionManager
	clock       domain.Clock
	log         logger.Logger
}

func NewHandler(
	bidService *services.BidService,
	listings domain.ListingRepository,
	stateCache domain.ListingStateCache,
	connManager domain.ConnectionManager,
	clock domain.Clock,
	log logger.Logger,
) *Handler {
	return &Handler{
		bidService:  bidService,
		listings:    listings,
		stateCache:  stateCache,
		connManager: connManager,
		clock:       clock,
		log:         log,
	}
}

// Router returns the websocket mux. Mounted on its own port, next to the API.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/listings/{listingID}", h.HandleConnection)
	return r
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	listingID := vars["listingID"]

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	if h.stateCache != nil {
		if closed, err := h.stateCache.IsClosed(r.Context(), listingID); err == nil && closed {
			http.Error(w, "listing is closed", http.StatusForbidden)
			return
		}
	}

	listing, err := h.listings.GetListing(r.Context(), listingID)
	if err != nil {
		if errors.Is(err, domain.ErrListingNotFound) {
			http.Error(w, "listing not found", http.StatusNotFound)
			return
		}
		h.log.Error("Failed to load listing", "listing_id", listingID, "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	if !listing.Open(h.clock.Now()) {
		http.Error(w, "listing is closed", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewConnection(conn, userID, listingID)

	if err := h.connManager.RegisterConnection(userID, listingID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	go h.readLoop(wsConn, userID, listingID)
}

// inboundMessage is what a watcher may send over the socket.
type inboundMessage struct {
	Type   string `json:"type"`
	Amount string `json:"amount,omitempty"`
}

func (h *Handler) readLoop(conn *Connection, userID, listingID string) {
	defer func() {
		h.connManager.UnregisterConnection(userID, listingID)
		conn.Close()
	}()

	for {
		var msg inboundMessage
		if err := conn.conn.ReadJSON(&msg); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("Websocket read ended", "user_id", userID,
					"listing_id", listingID, "error", err)
			}
			return
		}

		switch msg.Type {
		case "place_bid":
			h.handleBidMessage(conn, userID, listingID, msg.Amount)
		case "ping":
			conn.Send(map[string]string{"type": "pong"})
		}
	}
}

func (h *Handler) handleBidMessage(conn *Connection, userID, listingID, amount string) {
	price, err := decimal.NewFromString(amount)
	if err != nil {
		conn.Send(map[string]string{"type": "error", "message": "invalid amount"})
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	bid, err := h.bidService.PlaceBid(ctx, listingID, userID, price)
	if err != nil {
		conn.Send(map[string]string{"type": "error", "message": bidErrorMessage(err)})
		return
	}

	conn.Send(map[string]interface{}{
		"type":   "bid_accepted",
		"bid_id": bid.ID,
		"price":  bid.Price.String(),
	})
}

func bidErrorMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrBidTooLow):
		// Carries the current price so the bidder can retry above it.
		return err.Error()
	case errors.Is(err, domain.ErrListingClosed):
		return "listing is closed"
	case errors.Is(err, domain.ErrListingNotFound):
		return "listing not found"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid bid"
	default:
		return "failed to place bid"
	}
}

// Connection wraps one gorilla socket as a registered subscriber.
type Connection struct {
	conn      *websocket.Conn
	userID    string
	listingID string
	writeMu   sync.Mutex
}

func NewConnection(conn *websocket.Conn, userID, listingID string) *Connection {
	return &Connection{conn: conn, userID: userID, listingID: listingID}
}

// Send serializes writes; gorilla permits one concurrent writer.
func (c *Connection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) UserID() string {
	return c.userID
}

func (c *Connection) ListingID() string {
	return c.listingID
}
