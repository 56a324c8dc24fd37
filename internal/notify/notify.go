// Package notify publishes run-completion events to NATS so downstream
// consumers (a regulator-report exporter, an alerting job) can react without
// polling sync_run, adapted from the teacher's pkg/nats client.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/fmcsa-watch/chameleon-backend/internal/model"
	"github.com/fmcsa-watch/chameleon-backend/pkg/log"
)

const (
	SubjectIngestDone = "chameleon.ingest.done"
	SubjectDetectDone = "chameleon.detect.done"
)

// RunEvent is the payload published when an ingest or detect run finishes.
type RunEvent struct {
	RunID     string    `json:"run_id"`
	Status    string    `json:"status"`
	RowCount  int       `json:"row_count,omitempty"`
	LinkCount int       `json:"link_count,omitempty"`
	Error     string    `json:"error,omitempty"`
	At        time.Time `json:"at"`
}

// Publisher wraps a NATS connection. A nil Publisher is valid and every
// method becomes a no-op, so callers can skip wiring NATS in environments
// without a broker.
type Publisher struct {
	conn *nats.Conn
}

// Connect dials url. An empty url returns a nil Publisher rather than an
// error, since run-completion notification has no required-at-runtime
// behavior depending on it.
func Connect(url string) (*Publisher, error) {
	if url == "" {
		return nil, nil
	}
	conn, err := nats.Connect(url,
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warnf("notify: disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Infof("notify: reconnected to %s", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("notify: connect: %w", err)
	}
	return &Publisher{conn: conn}, nil
}

// PublishIngestDone announces an ingestion run's outcome.
func (p *Publisher) PublishIngestDone(runID string, status model.SyncRunStatus, rows int, errMsg string) {
	p.publish(SubjectIngestDone, RunEvent{RunID: runID, Status: string(status), RowCount: rows, Error: errMsg, At: time.Now().UTC()})
}

// PublishDetectDone announces a detection run's outcome.
func (p *Publisher) PublishDetectDone(runID string, linkCount int) {
	p.publish(SubjectDetectDone, RunEvent{RunID: runID, Status: string(model.SyncRunDone), LinkCount: linkCount, At: time.Now().UTC()})
}

func (p *Publisher) publish(subject string, event RunEvent) {
	if p == nil || p.conn == nil {
		return
	}
	data, err := json.Marshal(event)
	if err != nil {
		log.Errorf("notify: marshal %s event: %v", subject, err)
		return
	}
	if err := p.conn.Publish(subject, data); err != nil {
		log.Warnf("notify: publish %s: %v", subject, err)
	}
}

// Close drains and closes the underlying connection.
func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	_ = p.conn.Drain()
}
