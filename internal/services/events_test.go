package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestAMQPPublishDoesNotWaitForBroker(t *testing.T) {
	defer goleak.VerifyNone(t)

	pub := NewAMQPPublisher("amqp://blackhole:5672/", "events", slog.New(slog.NewTextHandler(io.Discard, nil)))
	dialing := make(chan struct{}, 1)
	release := make(chan struct{})
	pub.dialFunc = func(string) (*amqp.Connection, error) {
		dialing <- struct{}{}
		<-release
		return nil, errors.New("connection timed out")
	}

	start := time.Now()
	require.NoError(t, pub.Publish(context.Background(), newEvent(EventUserRegistered, "user", 1, 1, nil)))
	<-dialing

	// the worker is stuck dialing; requests keep going until the buffer fills
	for i := 0; i < amqpBufferSize; i++ {
		require.NoError(t, pub.Publish(context.Background(), newEvent(EventContentUpvoted, "project", 1, 1, nil)))
	}
	err := pub.Publish(context.Background(), newEvent(EventContentUpvoted, "project", 1, 1, nil))
	require.Error(t, err)
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok)
	assert.Equal(t, "EVENT_QUEUE_FULL", oopsErr.Code())
	assert.Less(t, time.Since(start), time.Second)

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, pub.Close(ctx))

	err = pub.Publish(context.Background(), newEvent(EventUserRegistered, "user", 2, 2, nil))
	require.Error(t, err)
}
