package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"go.uber.org/multierr"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/angelmondragon/threadmart-backend/pkg/config"
	"github.com/angelmondragon/threadmart-backend/pkg/logger"
)

type resourceKind string

const (
	kindTopic        resourceKind = "topics"
	kindSubscription resourceKind = "subscriptions"
)

// Client wraps the Pub/Sub v2 client with the topic and subscription names
// the services are configured with.
type Client struct {
	gcp     *gcppubsub.Client
	project string
	cfg     config.PubSubConfig
}

var errNotInitialized = errors.New("pubsub client not initialized")

// NewClient dials Pub/Sub and fails when a configured topic or subscription
// is missing.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	project := strings.TrimSpace(gcp.ProjectID)
	if project == "" {
		return nil, errors.New("gcp project id is required")
	}
	if strings.TrimSpace(cfg.PricingSubscription) == "" {
		return nil, errors.New("pricing subscription name is required")
	}

	inner, err := gcppubsub.NewClient(ctx, project)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}
	c := &Client{gcp: inner, project: project, cfg: cfg}
	if err := c.Ping(ctx); err != nil {
		_ = inner.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "project", project), "pubsub client initialized")
	}
	return c, nil
}

// Ping checks every configured topic and subscription and reports all
// failures together.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.gcp == nil {
		return errNotInitialized
	}
	var errs error
	for _, topic := range nonBlank(c.cfg.PricingTopic, c.cfg.OrdersTopic) {
		errs = multierr.Append(errs, c.checkTopic(ctx, topic))
	}
	for _, sub := range nonBlank(c.cfg.PricingSubscription, c.cfg.OrdersSubscription) {
		errs = multierr.Append(errs, c.checkSubscription(ctx, sub))
	}
	return errs
}

func (c *Client) checkTopic(ctx context.Context, name string) error {
	_, err := c.gcp.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{
		Topic: c.resource(kindTopic, name),
	})
	return describe(kindTopic, name, err)
}

func (c *Client) checkSubscription(ctx context.Context, name string) error {
	_, err := c.gcp.SubscriptionAdminClient.GetSubscription(ctx, &pubsubpb.GetSubscriptionRequest{
		Subscription: c.resource(kindSubscription, name),
	})
	return describe(kindSubscription, name, err)
}

func describe(kind resourceKind, name string, err error) error {
	switch {
	case err == nil:
		return nil
	case status.Code(err) == codes.NotFound:
		return fmt.Errorf("pubsub %s %q does not exist", kind, name)
	default:
		return fmt.Errorf("checking pubsub %s %q: %w", kind, name, err)
	}
}

// PricingSubscription is the subscriber the pricing worker drains.
func (c *Client) PricingSubscription() *gcppubsub.Subscriber {
	return c.Subscriber(c.cfg.PricingSubscription)
}

// Subscriber accepts a short ID or a full projects/.../subscriptions/... name.
func (c *Client) Subscriber(name string) *gcppubsub.Subscriber {
	if c == nil || c.gcp == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.gcp.Subscriber(c.resource(kindSubscription, name))
}

// Publisher accepts a short ID or a full projects/.../topics/... name.
func (c *Client) Publisher(name string) *gcppubsub.Publisher {
	if c == nil || c.gcp == nil || strings.TrimSpace(name) == "" {
		return nil
	}
	return c.gcp.Publisher(c.resource(kindTopic, name))
}

func (c *Client) Close() error {
	if c == nil || c.gcp == nil {
		return nil
	}
	return c.gcp.Close()
}

func (c *Client) resource(kind resourceKind, name string) string {
	name = strings.TrimSpace(name)
	if strings.HasPrefix(name, "projects/") && strings.Contains(name, "/"+string(kind)+"/") {
		return name
	}
	return fmt.Sprintf("projects/%s/%s/%s", c.project, kind, name)
}

func nonBlank(names ...string) []string {
	out := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			out = append(out, n)
		}
	}
	return out
}
