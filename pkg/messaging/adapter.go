package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/jwalitptl/clinic-api/pkg/logger"
)

type BrokerAdapter struct {
	broker Broker
	log    *logger.Logger
	wg     sync.WaitGroup
}

func NewBrokerAdapter(broker Broker, log *logger.Logger) *BrokerAdapter {
	return &BrokerAdapter{broker: broker, log: log}
}

// Publish forwards payload verbatim. It must be valid JSON.
func (a *BrokerAdapter) Publish(ctx context.Context, topic string, payload []byte) error {
	if !json.Valid(payload) {
		return fmt.Errorf("payload for %s is not valid JSON", topic)
	}
	return a.broker.Publish(ctx, topic, json.RawMessage(payload))
}

func (a *BrokerAdapter) Close() error {
	err := a.broker.Close()
	a.wg.Wait()
	return err
}

// Subscribe calls handler for each message until ctx ends or the broker
// closes. Handler errors are logged and the message is dropped.
func (a *BrokerAdapter) Subscribe(ctx context.Context, topic string, handler func([]byte) error) error {
	msgChan, err := a.broker.Subscribe(ctx, topic)
	if err != nil {
		return err
	}

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		for msg := range msgChan {
			if err := handler(msg); err != nil {
				a.log.Error(err, "message handler failed", "topic", topic)
			}
		}
	}()

	return nil
}

// Wait blocks until every subscription loop has returned.
func (a *BrokerAdapter) Wait() {
	a.wg.Wait()
}
