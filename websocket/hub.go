package websocket

import (
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Define notification types
const (
	NotificationTypePaymentCompleted    = "payment_completed"
	NotificationTypePaymentFailed       = "payment_failed"
	NotificationTypeMembershipActivated = "membership_activated"
	NotificationTypeBookingConfirmed    = "booking_confirmed"
)

// Notification represents a message sent over WebSocket
type Notification struct {
	Type         string      `json:"type"`
	Message      string      `json:"message"`
	Data         interface{} `json:"data,omitempty"`
	UserID       string      `json:"userID,omitempty"`
	RequiresAuth bool        `json:"requiresAuth,omitempty"`
}

// Client represents a connected WebSocket client
type Client struct {
	UserID        primitive.ObjectID
	Conn          *websocket.Conn
	Authenticated bool
}

// Hub maintains the set of active clients and broadcasts messages
type Hub struct {
	clients                map[primitive.ObjectID]*Client
	unauthenticatedClients map[*Client]bool
	register               chan *Client
	unregister             chan *Client
	mu                     sync.RWMutex
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		clients:                make(map[primitive.ObjectID]*Client),
		unauthenticatedClients: make(map[*Client]bool),
		register:               make(chan *Client),
		unregister:             make(chan *Client),
	}
}

// Run starts the hub's event loop
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				h.clients[client.UserID] = client
			} else {
				h.unauthenticatedClients[client] = true
			}
			h.mu.Unlock()
		case client := <-h.unregister:
			h.mu.Lock()
			if client.Authenticated && client.UserID != primitive.NilObjectID {
				if _, ok := h.clients[client.UserID]; ok {
					delete(h.clients, client.UserID)
				}
			} else {
				delete(h.unauthenticatedClients, client)
			}
			client.Conn.Close()
			h.mu.Unlock()
		}
	}
}

// SendToUser sends a message to a specific user
func (h *Hub) SendToUser(userID primitive.ObjectID, notification Notification) error {
	h.mu.RLock()
	client, ok := h.clients[userID]
	h.mu.RUnlock()

	if !ok {
		return fmt.Errorf("user not connected")
	}

	return client.Conn.WriteJSON(notification)
}

// AuthenticateClient moves a client from unauthenticated to authenticated state
func (h *Hub) AuthenticateClient(client *Client, userID primitive.ObjectID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.unauthenticatedClients[client]; ok {
		delete(h.unauthenticatedClients, client)
	}

	client.Authenticated = true
	client.UserID = userID

	h.clients[userID] = client

	return nil
}

// NotifyPaymentCompleted tells a member their checkout finished successfully
func (h *Hub) NotifyPaymentCompleted(userID primitive.ObjectID, paymentData interface{}) error {
	notification := Notification{
		Type:    NotificationTypePaymentCompleted,
		Message: "Your payment was completed successfully",
		Data:    paymentData,
	}

	return h.SendToUser(userID, notification)
}

// NotifyPaymentFailed tells a member their checkout did not go through
func (h *Hub) NotifyPaymentFailed(userID primitive.ObjectID, paymentData interface{}) error {
	notification := Notification{
		Type:    NotificationTypePaymentFailed,
		Message: "Your payment could not be completed",
		Data:    paymentData,
	}

	return h.SendToUser(userID, notification)
}

// NotifyMembershipActivated tells a member their plan is now active
func (h *Hub) NotifyMembershipActivated(userID primitive.ObjectID, membershipData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeMembershipActivated,
		Message: "Your membership is now active",
		Data:    membershipData,
	}

	return h.SendToUser(userID, notification)
}

// NotifyBookingConfirmed tells a member their spa booking is confirmed
func (h *Hub) NotifyBookingConfirmed(userID primitive.ObjectID, bookingData interface{}) error {
	notification := Notification{
		Type:    NotificationTypeBookingConfirmed,
		Message: "Your spa booking has been confirmed",
		Data:    bookingData,
	}

	return h.SendToUser(userID, notification)
}
