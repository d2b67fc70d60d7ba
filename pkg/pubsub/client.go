package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strings"

	pubsub "cloud.google.com/go/pubsub/v2"
	"cloud.google.com/go/pubsub/v2/apiv1/pubsubpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cakeverse/cakeverse-backend/pkg/config"
	"github.com/cakeverse/cakeverse-backend/pkg/logger"
)

// Client wraps the Pub/Sub v2 client with the domain topic the outbox relay
// publishes to.
type Client struct {
	client    *pubsub.Client
	projectID string
	cfg       config.PubSubConfig
}

var (
	errProjectIDRequired = errors.New("gcp project id is required")
	errNoDomainTopic     = errors.New("pubsub domain topic is required")
)

// NewClient creates a client and verifies the domain topic exists.
func NewClient(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*Client, error) {
	if strings.TrimSpace(gcp.ProjectID) == "" {
		return nil, errProjectIDRequired
	}
	if strings.TrimSpace(cfg.DomainTopic) == "" {
		return nil, errNoDomainTopic
	}

	psClient, err := pubsub.NewClient(ctx, gcp.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	c := &Client{
		client:    psClient,
		projectID: gcp.ProjectID,
		cfg:       cfg,
	}
	if err := c.Ping(ctx); err != nil {
		_ = psClient.Close()
		return nil, err
	}
	if logg != nil {
		logg.Info(logg.WithField(ctx, "topic", cfg.DomainTopic), "pubsub client initialized")
	}
	return c, nil
}

// Publisher returns a publisher for a topic ID or full resource name.
func (c *Client) Publisher(name string) *pubsub.Publisher {
	if c == nil || c.client == nil {
		return nil
	}
	fullName := TopicResourceName(c.projectID, name)
	if fullName == "" {
		return nil
	}
	return c.client.Publisher(fullName)
}

// DomainPublisher returns the publisher for ledger domain events.
func (c *Client) DomainPublisher() *pubsub.Publisher {
	if c == nil {
		return nil
	}
	return c.Publisher(c.cfg.DomainTopic)
}

// Ping checks that the domain topic exists.
func (c *Client) Ping(ctx context.Context) error {
	if c == nil || c.client == nil {
		return errors.New("pubsub client not initialized")
	}
	fullName := TopicResourceName(c.projectID, c.cfg.DomainTopic)
	_, err := c.client.TopicAdminClient.GetTopic(ctx, &pubsubpb.GetTopicRequest{Topic: fullName})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("topic %q does not exist", c.cfg.DomainTopic)
		}
		return fmt.Errorf("checking topic %q: %w", c.cfg.DomainTopic, err)
	}
	return nil
}

func (c *Client) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}

// TopicResourceName expands a bare topic ID into projects/<p>/topics/<id>.
// Full resource names pass through unchanged.
func TopicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if n == "" {
		return ""
	}
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	p := strings.TrimSpace(projectID)
	if p == "" {
		return ""
	}
	return fmt.Sprintf("projects/%s/topics/%s", p, n)
}
