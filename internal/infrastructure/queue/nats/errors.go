package nats

import (
	"errors"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/footwear-qc/internal/infrastructure/resilience"
)

// connectionErrors clear up once the client reconnects.
var connectionErrors = []error{
	nats.ErrNoServers,
	nats.ErrReconnectBufExceeded,
	nats.ErrTimeout,
	nats.ErrConnectionClosed,
	nats.ErrDisconnected,
}

var classifyNATSError = resilience.Classify(func(err error) resilience.ErrorClassification {
	for _, target := range connectionErrors {
		if errors.Is(err, target) {
			return resilience.Transient
		}
	}
	return resilience.Permanent
})

// temporaryPublishError lets the API answer 503 when the broker is unreachable.
func temporaryPublishError(err error) error {
	return resilience.WrapTemporary("publish analysis request", err, classifyNATSError)
}
