package state

import (
	"time"

	"github.com/goatnetwork/qlink/internal/keystone"
	"github.com/goatnetwork/qlink/internal/keystone/multipart"
	"github.com/goatnetwork/qlink/internal/render"
)

// FragmentEvent is published for every fragment the decoder accepted.
type FragmentEvent struct {
	Fragment string
	Progress multipart.Progress
}

// DecodedEvent is published when a session completes.
type DecodedEvent struct {
	Payload   keystone.Payload
	Rendered  render.Rendered
	Parts     int
	DecodedAt time.Time
}

type FailedEvent struct {
	Fragment string
	URType   string
	Err      error
}

// ReceiveResult is what a caller feeding fragments gets back. Decoded is set
// only on the fragment that completed the session.
type ReceiveResult struct {
	Progress multipart.Progress
	Decoded  *DecodedEvent
}
