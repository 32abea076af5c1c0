// Package scanner feeds UR fragments into the scan session one frame at a
// time. A frame is one line of the input, as produced by a QR reader such as
// zbarcam or by urtool.
package scanner

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/goatnetwork/qlink/internal/config"
	"github.com/goatnetwork/qlink/internal/keystone/envelope"
	"github.com/goatnetwork/qlink/internal/metrics"
	"github.com/goatnetwork/qlink/internal/state"
	log "github.com/sirupsen/logrus"
)

const maxFrameSize = 1 << 20

var ErrNoPayload = errors.New("input ended before a payload was decoded")

type Scanner struct {
	state *state.State

	input   string
	watch   bool
	jsonOut bool
	out     io.Writer

	logger *log.Entry
}

func NewScanner(st *state.State) *Scanner {
	return &Scanner{
		state:   st,
		input:   config.AppConfig.Input,
		watch:   config.AppConfig.Watch,
		jsonOut: config.AppConfig.OutputJSON,
		out:     os.Stdout,
		logger:  log.WithFields(log.Fields{"module": "scanner", "input": config.AppConfig.Input}),
	}
}

func (s *Scanner) Start(ctx context.Context) {
	if err := s.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Errorf("Scanner stopped: %v", err)
	}
}

// Run reads frames until the input ends or ctx is done. With watch off it
// returns after the first decoded payload.
func (s *Scanner) Run(ctx context.Context) error {
	r, closeInput, err := s.open()
	if err != nil {
		return err
	}
	defer closeInput()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	frames := make(chan string)
	readErr := make(chan error, 1)
	go func() {
		defer close(frames)
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 4096), maxFrameSize)
		for sc.Scan() {
			select {
			case frames <- sc.Text():
			case <-ctx.Done():
				return
			}
		}
		readErr <- sc.Err()
	}()

	s.logger.Info("Waiting for Keystone QR sequence...")

	var (
		backpressure uint64
		lastStarted  time.Time
		decoded      int
	)
	for {
		var frame string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case f, ok := <-frames:
			if !ok {
				select {
				case err := <-readErr:
					if err != nil {
						return fmt.Errorf("read input: %w", err)
					}
				default:
				}
				if !s.watch && decoded == 0 {
					return ErrNoPayload
				}
				s.logger.Infof("Input ended, %d payloads decoded", decoded)
				return nil
			}
			frame = strings.TrimSpace(f)
		}
		if frame == "" || strings.HasPrefix(frame, "#") {
			continue
		}

		started := time.Now()
		if !lastStarted.IsZero() {
			metrics.RecordFrameInterval(started.Sub(lastStarted))
		}
		lastStarted = started

		urType, _ := envelope.ExtractType(frame)
		res, err := s.state.Receive(frame)
		if err != nil {
			metrics.RecordScan(time.Since(started), false, urType)
			backpressure++
			metrics.RecordBackpressure(backpressure)
			s.logger.WithField("backpressure", backpressure).Debugf("Frame rejected: %v", err)
			s.emitError(err.Error())
			continue
		}
		metrics.RecordScan(time.Since(started), true, urType)
		backpressure = 0
		metrics.RecordBackpressure(backpressure)

		if res.Decoded == nil {
			s.logger.Debug(res.Progress.Message())
			continue
		}
		decoded++
		s.emitPayload(res.Decoded)
		if !s.watch {
			return nil
		}
	}
}

func (s *Scanner) open() (io.Reader, func(), error) {
	if s.input == "" || s.input == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(s.input)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { f.Close() }, nil
}

func (s *Scanner) emitPayload(d *state.DecodedEvent) {
	if s.jsonOut {
		s.writeJSON(d.Rendered.JSON)
		return
	}
	for _, line := range d.Rendered.Human {
		fmt.Fprintln(s.out, line)
	}
}

func (s *Scanner) emitError(message string) {
	if s.jsonOut {
		s.writeJSON(map[string]string{"error": message})
		return
	}
	fmt.Fprintf(s.out, "Failed to decode Keystone message: %s\n", message)
}

func (s *Scanner) writeJSON(v interface{}) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		s.logger.Errorf("Failed to encode output: %v", err)
		return
	}
	fmt.Fprintln(s.out, string(out))
}
