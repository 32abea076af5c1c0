package state

import (
	"context"
	"sync"
	"time"

	"github.com/goatnetwork/qlink/internal/db"
	"github.com/goatnetwork/qlink/internal/keystone/envelope"
	"github.com/goatnetwork/qlink/internal/keystone/multipart"
	"github.com/goatnetwork/qlink/internal/metrics"
	"github.com/goatnetwork/qlink/internal/render"
	log "github.com/sirupsen/logrus"
)

const historyChanLength = 64

type State struct {
	EventBus *EventBus

	dbm *db.DatabaseManager

	sessionMu sync.Mutex
	decoder   *multipart.Decoder

	lastMu sync.RWMutex
	last   *DecodedEvent
}

// InitializeState creates the scan session state. dbm may be nil, in which
// case decoded payloads are not persisted.
func InitializeState(dbm *db.DatabaseManager) *State {
	return &State{
		EventBus: NewEventBus(),
		dbm:      dbm,
		decoder:  multipart.NewDecoder(),
	}
}

// Receive feeds one fragment into the current session. When the fragment
// completes the session the payload is rendered, published as PayloadDecoded
// and the decoder is reset for the next session.
func (s *State) Receive(fragment string) (ReceiveResult, error) {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()

	progress, err := s.decoder.Receive(fragment)
	if err != nil {
		urType, _ := envelope.ExtractType(fragment)
		s.EventBus.Publish(ScanFailed, FailedEvent{Fragment: fragment, URType: urType, Err: err})
		return ReceiveResult{Progress: progress}, err
	}
	s.EventBus.Publish(FragmentReceived, FragmentEvent{Fragment: fragment, Progress: progress})

	if !progress.Complete {
		return ReceiveResult{Progress: progress}, nil
	}

	payload, err := s.decoder.Result()
	s.decoder.Reset()
	if err != nil {
		s.EventBus.Publish(ScanFailed, FailedEvent{Fragment: fragment, URType: payload.Type, Err: err})
		return ReceiveResult{Progress: progress}, err
	}

	decoded := &DecodedEvent{
		Payload:   payload,
		Rendered:  render.Render(payload),
		Parts:     progress.PartsReceived,
		DecodedAt: time.Now(),
	}
	s.lastMu.Lock()
	s.last = decoded
	s.lastMu.Unlock()

	variant := db.VariantError
	if m, err := payload.Message(); err == nil {
		variant = m.Variant()
	}
	metrics.RecordPayload(variant, payload.Metadata.Multipart)
	log.WithFields(log.Fields{
		"module":    "state",
		"ur_type":   payload.Type,
		"variant":   variant,
		"parts":     decoded.Parts,
		"multipart": payload.Metadata.Multipart,
	}).Info("Payload decoded")

	s.EventBus.Publish(PayloadDecoded, *decoded)
	return ReceiveResult{Progress: progress, Decoded: decoded}, nil
}

func (s *State) Progress() multipart.Progress {
	s.sessionMu.Lock()
	defer s.sessionMu.Unlock()
	return s.decoder.Progress()
}

// Reset abandons the current session.
func (s *State) Reset() {
	s.sessionMu.Lock()
	s.decoder.Reset()
	s.sessionMu.Unlock()
	s.EventBus.Publish(SessionReset, struct{}{})
}

func (s *State) LastDecoded() *DecodedEvent {
	s.lastMu.RLock()
	defer s.lastMu.RUnlock()
	return s.last
}

func (s *State) History() *db.DatabaseManager {
	return s.dbm
}

// Start persists every decoded payload until ctx is done.
func (s *State) Start(ctx context.Context) {
	if s.dbm == nil {
		return
	}
	decodedCh := make(chan interface{}, historyChanLength)
	s.EventBus.Subscribe(PayloadDecoded, decodedCh)
	defer s.EventBus.Unsubscribe(PayloadDecoded, decodedCh)

	for {
		select {
		case <-ctx.Done():
			log.Info("Stopping the scan history recorder...")
			return
		case event := <-decodedCh:
			decoded, ok := event.(DecodedEvent)
			if !ok {
				continue
			}
			record := db.NewScanRecord(decoded.Payload, decoded.Parts)
			record.CreatedAt = decoded.DecodedAt
			if err := s.dbm.SaveScan(record); err != nil {
				continue
			}
			log.Debugf("Saved scan record %d, type %s", record.ID, record.URType)
		}
	}
}
