package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/bidhaus/bidhaus-backend/pkg/config"
	"github.com/bidhaus/bidhaus-backend/pkg/enums"
	"github.com/bidhaus/bidhaus-backend/pkg/logger"
	"github.com/google/uuid"
)

const publishTimeout = 15 * time.Second

type publishResult interface {
	Get(ctx context.Context) (string, error)
}

type publisher interface {
	Publish(ctx context.Context, msg *gcppubsub.Message) publishResult
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	return p.Publisher.Publish(ctx, msg)
}

// PubSub publishes auction events to Google Cloud Pub/Sub. Auction-wide
// events go to the auction events topic; per-vendor notices go to the vendor
// notices topic.
type PubSub struct {
	client  *gcppubsub.Client
	events  publisher
	notices publisher
	logg    *logger.Logger
}

// NewPubSub creates the Pub/Sub client and resolves the configured topics.
func NewPubSub(ctx context.Context, gcp config.GCPConfig, cfg config.PubSubConfig, logg *logger.Logger) (*PubSub, error) {
	projectID := strings.TrimSpace(gcp.ProjectID)
	if projectID == "" {
		return nil, errors.New("gcp project id is required")
	}
	if strings.TrimSpace(cfg.AuctionEventsTopic) == "" {
		return nil, errors.New("auction events topic is required")
	}
	if strings.TrimSpace(cfg.VendorNoticesTopic) == "" {
		return nil, errors.New("vendor notices topic is required")
	}

	client, err := gcppubsub.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	ps := &PubSub{
		client:  client,
		events:  &gcpPublisher{Publisher: client.Publisher(topicResourceName(projectID, cfg.AuctionEventsTopic))},
		notices: &gcpPublisher{Publisher: client.Publisher(topicResourceName(projectID, cfg.VendorNoticesTopic))},
		logg:    logg,
	}
	if logg != nil {
		logg.Info(ctx, "pubsub notifier initialized")
	}
	return ps, nil
}

// BidPlaced publishes a bid announcement to the auction events topic.
func (p *PubSub) BidPlaced(ctx context.Context, event BidPlacedEvent) error {
	return p.publish(ctx, p.events, enums.EventBidPlaced, event.AuctionID, event)
}

// AuctionExtended publishes a soft-close extension to the auction events topic.
func (p *PubSub) AuctionExtended(ctx context.Context, event AuctionExtendedEvent) error {
	return p.publish(ctx, p.events, enums.EventAuctionExtended, event.AuctionID, event)
}

// AuctionCompleted publishes a settlement result to the auction events topic.
func (p *PubSub) AuctionCompleted(ctx context.Context, event AuctionCompletedEvent) error {
	return p.publish(ctx, p.events, enums.EventAuctionCompleted, event.AuctionID, event)
}

// NotifyVendor publishes a per-vendor notice to the vendor notices topic.
func (p *PubSub) NotifyVendor(ctx context.Context, notice VendorNotice) error {
	return p.publish(ctx, p.notices, notice.Event, notice.AuctionID, notice)
}

func (p *PubSub) publish(ctx context.Context, pub publisher, eventType enums.AuctionEventType, auctionID uuid.UUID, payload any) error {
	if pub == nil {
		return errors.New("publisher not configured")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding %s payload: %w", eventType, err)
	}

	msg := &gcppubsub.Message{
		Data: data,
		Attributes: map[string]string{
			"event_type": string(eventType),
			"auction_id": auctionID.String(),
			"created_at": time.Now().UTC().Format(time.RFC3339Nano),
		},
	}

	publishCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	if _, err := pub.Publish(publishCtx, msg).Get(publishCtx); err != nil {
		return fmt.Errorf("publishing %s: %w", eventType, err)
	}
	return nil
}

// Close releases the Pub/Sub client resources.
func (p *PubSub) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}

func topicResourceName(projectID, name string) string {
	n := strings.TrimSpace(name)
	if strings.HasPrefix(n, "projects/") && strings.Contains(n, "/topics/") {
		return n
	}
	return fmt.Sprintf("projects/%s/topics/%s", projectID, n)
}
