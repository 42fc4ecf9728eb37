package api

import (
	"encoding/json"
	"fmt"

	"github.com/gin-gonic/gin"
)

// sseEmitter writes generation events as text/event-stream frames.
// gin's SSEvent omits the space after "data:", which the browser client
// and streamclient.Decoder both require, so frames are written by hand.
type sseEmitter struct {
	c *gin.Context
}

func startEventStream(c *gin.Context) *sseEmitter {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	c.Status(200)
	c.Writer.WriteHeaderNow()
	c.Writer.Flush()
	return &sseEmitter{c: c}
}

func (e *sseEmitter) Emit(event string, data any) error {
	if err := e.c.Request.Context().Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", event, err)
	}
	if _, err := fmt.Fprintf(e.c.Writer, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return fmt.Errorf("write %s event: %w", event, err)
	}
	e.c.Writer.Flush()
	return nil
}
