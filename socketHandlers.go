package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/Hx199814/oneyearobesity/obesity"
	"github.com/mdobak/go-xerrors"
)

// emitter is the part of socketio.Conn the controller talks to.
type emitter interface {
	ID() string
	Emit(eventName string, v ...interface{})
}

type socketController struct {
	service *assessmentService
}

func newSocketController(service *assessmentService) *socketController {
	return &socketController{service: service}
}

func (c *socketController) emitModelInfo(socket emitter) {
	socket.Emit("modelInfo", c.service.pipeline.Info())
}

func (c *socketController) emitError(socket emitter, message string) {
	socket.Emit("predictionError", apiError{Message: message})
}

// handleClassifyBaseline answers the live BMI readout shown while the form is
// being filled in. It never touches the model.
func (c *socketController) handleClassifyBaseline(socket emitter, msg string) {
	logger := c.service.logger
	ctx := context.Background()

	var req baselineRequest
	if err := json.Unmarshal([]byte(msg), &req); err != nil {
		logger.DebugContext(ctx, "invalid baseline payload",
			slog.String("socketID", socket.ID()),
			slog.String("error", err.Error()),
		)
		c.emitError(socket, fmt.Sprintf("invalid baseline payload: %v", err))
		return
	}

	reading, err := c.service.baseline(req)
	if err != nil {
		c.emitError(socket, publicMessage(statusForError(err), err))
		return
	}
	socket.Emit("baseline", reading)
}

// handlePredict runs a full assessment. It is called on its own goroutine so
// a slow model does not block the socket's event loop.
func (c *socketController) handlePredict(socket emitter, msg string) {
	logger := c.service.logger
	defer func() {
		if r := recover(); r != nil {
			err := xerrors.New(fmt.Errorf("panic: %v", r))
			logger.Error("panic in predict handler", slog.String("socketID", socket.ID()), slog.Any("error", err))
			c.emitError(socket, "internal server error during prediction")
		}
	}()

	ctx := context.Background()
	if msg == "" {
		c.emitError(socket, "no profile received")
		return
	}

	var profile obesity.StudentProfile
	if err := json.Unmarshal([]byte(msg), &profile); err != nil {
		err := xerrors.New(err)
		logger.WarnContext(ctx, "failed to parse profile payload",
			slog.String("socketID", socket.ID()),
			slog.Any("error", err),
		)
		c.emitError(socket, "invalid profile payload")
		return
	}

	assessment, err := c.service.assess(ctx, profile)
	if err != nil {
		status := statusForError(err)
		logErr := xerrors.New(err)
		logger.WarnContext(ctx, "socket prediction failed",
			slog.String("socketID", socket.ID()),
			slog.Int("status", status),
			slog.Any("error", logErr),
		)
		c.emitError(socket, publicMessage(status, err))
		return
	}
	socket.Emit("assessment", assessment)
}
