package push

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const redialInterval = 5 * time.Second

// Source keeps a websocket connection to the push endpoint and feeds every
// received event into a Dispatcher. Events arriving while the connection is
// down are missed, not buffered; the periodic refetch repairs the gap.
type Source struct {
	url        string
	dispatcher *Dispatcher
	log        zerolog.Logger
}

// NewSource creates a source for the given ws:// endpoint.
func NewSource(url string, d *Dispatcher, log zerolog.Logger) *Source {
	return &Source{
		url:        url,
		dispatcher: d,
		log:        log.With().Str("component", "push").Logger(),
	}
}

// Run dials the endpoint and reads until the context is cancelled,
// redialing after connection loss. Intended to run as a goroutine.
func (s *Source) Run(ctx context.Context) {
	for {
		if err := s.readOnce(ctx); err != nil {
			s.log.Warn().Err(err).Msg("push connection lost")
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(redialInterval):
		}
	}
}

func (s *Source) readOnce(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return err
	}
	defer conn.Close()
	s.log.Info().Str("url", s.url).Msg("push channel connected")

	// Close the connection when the context ends so ReadJSON unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	// The sender batches queued events into one frame, so every frame is a
	// stream of JSON values; decode until the frame is exhausted.
	for {
		_, r, err := conn.NextReader()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		dec := json.NewDecoder(r)
		for {
			var evt Event
			if err := dec.Decode(&evt); err != nil {
				if !errors.Is(err, io.EOF) {
					s.log.Warn().Err(err).Msg("malformed push frame, remainder dropped")
				}
				break
			}
			s.dispatcher.Dispatch(evt)
		}
	}
}
