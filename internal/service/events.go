package service

import "context"

// Event names emitted over the realtime boundary. Rooms are per-user:
// a driver's room is their driver ID, a passenger's room their passenger ID.
const (
	EventRideOffer    = "ride:offer"
	EventRideAccepted = "ride:accepted"
	EventRideTaken    = "ride:taken"
	EventRideStarted  = "ride:started"
	EventRideComplete = "ride:completed"
	EventRideCancel   = "ride:cancelled"
	EventRideFailed   = "ride:failed"
	EventPoolJoined   = "pool:joined"
	EventDiscountNew  = "discount:new"
)

// RoomEmitter delivers realtime events to user rooms. Emission is
// best-effort: callers log failures and continue.
type RoomEmitter interface {
	EmitToRoom(ctx context.Context, room, event string, payload any) error
}

// Notifier delivers best-effort push notifications.
type Notifier interface {
	Push(ctx context.Context, userID, title, message string) error
}
