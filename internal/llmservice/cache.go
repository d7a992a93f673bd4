package llmservice

import (
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog/log"
)

// ModelCache lazily builds one client per model id and keeps it for the life
// of the process. Two callers racing on a cold key may both build a client;
// only the first stored one is ever handed out.
type ModelCache[T any] struct {
	kind    string
	create  func(model string) (T, error)
	clients *xsync.MapOf[string, T]
}

func NewModelCache[T any](kind string, create func(model string) (T, error)) *ModelCache[T] {
	return &ModelCache[T]{
		kind:    kind,
		create:  create,
		clients: xsync.NewMapOf[string, T](),
	}
}

func (c *ModelCache[T]) Get(model string) (T, error) {
	if client, ok := c.clients.Load(model); ok {
		return client, nil
	}

	client, err := c.create(model)
	if err != nil {
		var zero T
		return zero, err
	}

	actual, loaded := c.clients.LoadOrStore(model, client)
	if !loaded {
		log.Debug().Str("kind", c.kind).Str("model", model).Msg("Cached new model client")
	}
	return actual, nil
}

func (c *ModelCache[T]) Len() int {
	return c.clients.Size()
}
