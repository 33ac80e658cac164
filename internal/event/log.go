// Package event provides the delivery side of the realtime boundary.
//
// The implementations here log instead of pushing to a socket or push
// gateway; swapping in a real transport only needs the two interfaces in
// the service package.
package event

import (
	"context"

	"go.uber.org/zap"

	"hail/internal/service"
)

// LogEmitter writes room events to the structured log.
type LogEmitter struct {
	logger *zap.Logger
}

// NewLogEmitter creates a LogEmitter.
func NewLogEmitter(logger *zap.Logger) *LogEmitter {
	return &LogEmitter{logger: logger}
}

// EmitToRoom logs the event destined for a user room.
func (e *LogEmitter) EmitToRoom(_ context.Context, room, event string, payload any) error {
	e.logger.Info("room event",
		zap.String("room", room),
		zap.String("event", event),
		zap.Any("payload", payload))
	return nil
}

// LogNotifier writes push notifications to the structured log.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Push logs the notification.
func (n *LogNotifier) Push(_ context.Context, userID, title, message string) error {
	n.logger.Info("push notification",
		zap.String("user_id", userID),
		zap.String("title", title),
		zap.String("message", message))
	return nil
}

var (
	_ service.RoomEmitter = (*LogEmitter)(nil)
	_ service.Notifier    = (*LogNotifier)(nil)
)
