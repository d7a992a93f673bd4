package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"document-rag/internal/progress"
)

// streamEvents forwards every event of stream as "data: <json>\n\n" and
// flushes after each one. It returns when the stream closes or the client
// goes away; in the latter case the producer keeps running.
func (s *Server) streamEvents(c *gin.Context, stream *progress.Stream) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	ctx := c.Request.Context()
	for {
		ev, err := stream.Next(ctx)
		if err != nil {
			if !errors.Is(err, progress.ErrClosed) {
				log.Warn().Err(err).Msg("Client left the upload stream")
			}
			return
		}
		if err := writeEvent(c.Writer, ev); err != nil {
			log.Warn().Err(err).Msg("Could not write progress event")
			return
		}
		c.Writer.Flush()
	}
}

func writeEvent(w io.Writer, ev progress.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "data: %s\n\n", data)
	return err
}
