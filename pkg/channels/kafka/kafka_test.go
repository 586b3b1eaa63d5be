package kafka

import (
	"log/slog"
	"os"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/dukex/roadbook/pkg/events"
	"github.com/stretchr/testify/assert"
)

func TestCreateChannel_RequiresBrokers(t *testing.T) {
	logger := watermill.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stdout, nil)))

	_, _, err := CreateChannel(logger, nil, "roadbook")
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, _, err = CreateChannel(logger, []string{""}, "roadbook")
	assert.ErrorIs(t, err, ErrNoBrokers)
}

func TestPartitionKey(t *testing.T) {
	msg := message.NewMessage("msg-1", []byte("{}"))
	msg.Metadata.Set(events.EventMetadataKey, "itinerary-1")

	key, err := partitionKey(events.Topic, msg)
	assert.NoError(t, err)
	assert.Equal(t, "itinerary-1", key)
}
