/*
Package notify provides notice delivery implementations.

PURPOSE:
  Implements the engine.NoticeSender collaborator. The engine only decides
  WHAT notice should exist; this package owns HOW one leaves the system.
  Delivery failures are reported back and logged by callers - the engine
  never retries and never lets a dispatch failure alter a computed result.

IMPLEMENTATIONS:
  LogSender:  Writes notices to the process log. Default for development
              and for deployments that front delivery with another system.
  AMQPSender: Publishes notices to a RabbitMQ topic exchange for a
              downstream delivery worker (see amqp.go).

SEE ALSO:
  - engine/dunning.go: The Escalator that drives dispatch
*/
package notify

import (
	"context"
	"log"

	"github.com/brownstone/rent-engine/engine"
)

// Notice is the transport-level payload: a bare address, subject, and body.
type Notice struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// =============================================================================
// LOG SENDER - Development / log-fronted delivery
// =============================================================================

// LogSender writes every notice to the process log and always succeeds.
type LogSender struct{}

func NewLogSender() *LogSender { return &LogSender{} }

func (s *LogSender) Send(_ context.Context, to, subject, body string) error {
	log.Printf("[Notify] to=%s subject=%q (%d bytes)", to, subject, len(body))
	return nil
}

var _ engine.NoticeSender = (*LogSender)(nil)
