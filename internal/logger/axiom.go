package logger

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/axiomhq/axiom-go/axiom"
	"github.com/axiomhq/axiom-go/axiom/ingest"
	"github.com/rs/zerolog"
)

const (
	shipBuffer = 1000
	shipBatch  = 200
)

// privateFields never leave the host: course text and prompts may hold
// material the user did not mean to publish.
var privateFields = []string{"text", "prompt", "response"}

// axiomSink is a zerolog.LevelWriter that hands events at or above min to
// the shipper.
type axiomSink struct {
	ship *shipper
	min  zerolog.Level
}

func (w *axiomSink) Write(p []byte) (int, error) {
	return w.WriteLevel(zerolog.NoLevel, p)
}

func (w *axiomSink) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level != zerolog.NoLevel && level < w.min {
		return len(p), nil
	}
	w.ship.Send(toEvent(p))
	return len(p), nil
}

func toEvent(p []byte) axiom.Event {
	var ev map[string]any
	if err := json.Unmarshal(p, &ev); err != nil {
		ev = map[string]any{"message": string(p), "level": "info"}
	}
	for _, k := range privateFields {
		delete(ev, k)
	}
	if _, ok := ev[ingest.TimestampField]; !ok {
		ev[ingest.TimestampField] = time.Now()
	}
	return axiom.Event(ev)
}

// shipper batches events and ingests them on a ticker or when a batch fills.
type shipper struct {
	client  *axiom.Client
	dataset string
	events  chan axiom.Event
	dropped atomic.Int64
	done    chan struct{}
	wg      sync.WaitGroup
	once    sync.Once
}

func newShipper(token, orgID, dataset string, every time.Duration) (*shipper, error) {
	if dataset == "" {
		dataset = "dev_" + serviceName
	}
	opts := []axiom.Option{axiom.SetToken(token)}
	if orgID != "" {
		opts = append(opts, axiom.SetOrganizationID(orgID))
	}
	c, err := axiom.NewClient(opts...)
	if err != nil {
		return nil, err
	}
	if every <= 0 {
		every = 10 * time.Second
	}
	s := &shipper{
		client:  c,
		dataset: dataset,
		events:  make(chan axiom.Event, shipBuffer),
		done:    make(chan struct{}),
	}
	s.wg.Add(1)
	go s.run(every)
	return s, nil
}

// Send never blocks; events are dropped while the buffer is full.
func (s *shipper) Send(ev axiom.Event) {
	select {
	case s.events <- ev:
	default:
		s.dropped.Add(1)
	}
}

func (s *shipper) run(every time.Duration) {
	defer s.wg.Done()
	tick := time.NewTicker(every)
	defer tick.Stop()

	batch := make([]axiom.Event, 0, shipBatch)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		if _, err := s.client.IngestEvents(ctx, s.dataset, batch); err != nil {
			fmt.Fprintf(os.Stderr, "axiom ingest (%d events): %v\n", len(batch), err)
		}
		cancel()
		batch = batch[:0]
	}

	for {
		select {
		case ev := <-s.events:
			batch = append(batch, ev)
			if len(batch) >= shipBatch {
				flush()
			}
		case <-tick.C:
			flush()
		case <-s.done:
			for {
				select {
				case ev := <-s.events:
					batch = append(batch, ev)
				default:
					flush()
					return
				}
			}
		}
	}
}

// Close drains the buffer and waits for the final ingest.
func (s *shipper) Close() {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
		if n := s.dropped.Load(); n > 0 {
			fmt.Fprintf(os.Stderr, "axiom: dropped %d log events\n", n)
		}
	})
}
