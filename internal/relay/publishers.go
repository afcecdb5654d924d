package relay

import (
	"context"
	"sync"

	gcppubsub "cloud.google.com/go/pubsub/v2"
)

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
	Stop()
}

type publishResult interface {
	Get(context.Context) (string, error)
}

// PublisherFactory opens a publisher for a topic. It returns nil when the topic
// cannot be served.
type PublisherFactory func(topic string) publisher

// publisherCache opens one publisher per topic and reuses it across batches.
type publisherCache struct {
	mu      sync.Mutex
	open    PublisherFactory
	byTopic map[string]publisher
}

func newPublisherCache(open PublisherFactory) *publisherCache {
	return &publisherCache{open: open, byTopic: map[string]publisher{}}
}

func (c *publisherCache) get(topic string) publisher {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.byTopic[topic]; ok {
		return p
	}
	p := c.open(topic)
	if p != nil {
		c.byTopic[topic] = p
	}
	return p
}

// stopAll flushes and stops every open publisher.
func (c *publisherCache) stopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for topic, p := range c.byTopic {
		p.Stop()
		delete(c.byTopic, topic)
	}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}

// GCPPublishers adapts a Pub/Sub client lookup into a PublisherFactory.
func GCPPublishers(lookup func(topic string) *gcppubsub.Publisher) PublisherFactory {
	return func(topic string) publisher {
		p := lookup(topic)
		if p == nil {
			return nil
		}
		return gcpPublisher{Publisher: p}
	}
}
