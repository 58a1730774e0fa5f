package projections

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/segmentio/kafka-go"

	"tourbook-backend/internal/dedup"
	"tourbook-backend/internal/kstream"
	"tourbook-backend/internal/model"
)

// RatingRecomputer rewrites a tour's derived rating fields.
type RatingRecomputer interface {
	RecomputeRating(ctx context.Context, tourID string) (model.RatingSummary, error)
}

// StatsInvalidator drops cached vendor stats.
type StatsInvalidator interface {
	InvalidateVendorStats(ctx context.Context, vendorID string)
}

// Rejecter records events that could not be projected.
type Rejecter interface {
	WriteEvent(ctx context.Context, evt model.Event, reason error) error
	WriteRaw(ctx context.Context, topic string, raw []byte, reason error) error
}

// Projector applies domain events to derived state: tour ratings, the vendor
// stats cache and, when configured, the vendor activity feed.
type Projector struct {
	ratings RatingRecomputer
	stats   StatsInvalidator
	feed    *Feed
	seen    dedup.Filter
	rejects Rejecter
}

func NewProjector(ratings RatingRecomputer, stats StatsInvalidator, feed *Feed, seen dedup.Filter) *Projector {
	return &Projector{ratings: ratings, stats: stats, feed: feed, seen: seen}
}

// RejectTo makes the consumer loop record failed events in r.
func (p *Projector) RejectTo(r Rejecter) {
	p.rejects = r
}

// Handle runs every projector for one event. A redelivered event id is
// skipped once it has been applied; an event whose projection failed is
// forgotten again so a redelivery retries it.
func (p *Projector) Handle(ctx context.Context, evt model.Event) error {
	if p.seen != nil {
		seen, err := p.seen.Seen(ctx, evt.ID)
		if err != nil {
			log.Printf("Projectors: dedup check for %s failed, applying anyway: %v", evt.ID, err)
		}
		if seen {
			return nil
		}
	}

	var errs []error
	switch evt.Type.Topic() {
	case model.TopicReviews:
		if err := UpdateRating(ctx, p.ratings, evt); err != nil {
			log.Printf("Rating Projector error: %v", err)
			errs = append(errs, err)
		}
	case model.TopicBookings:
		InvalidateStats(ctx, p.stats, evt)
	}

	if p.feed != nil {
		if err := p.feed.Append(ctx, evt); err != nil {
			log.Printf("Feed Projector error: %v", err)
			errs = append(errs, err)
		}
	}

	err := errors.Join(errs...)
	if err != nil && p.seen != nil {
		if ferr := p.seen.Forget(ctx, evt.ID); ferr != nil {
			log.Printf("Projectors: failed to clear seen mark for %s: %v", evt.ID, ferr)
		}
	}
	return err
}

// Consume reads both event topics until ctx is cancelled.
func (p *Projector) Consume(ctx context.Context, broker, groupID string) error {
	topics := []string{model.TopicBookings, model.TopicReviews}
	var wg sync.WaitGroup
	errs := make(chan error, len(topics))

	for _, topic := range topics {
		reader := kstream.KafkaReader(broker, topic, groupID)
		wg.Add(1)
		go func(topic string, reader *kafka.Reader) {
			defer wg.Done()
			defer reader.Close()
			log.Printf("Projectors: consuming from %s", topic)
			errs <- p.consumeTopic(ctx, reader)
		}(topic, reader)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	}
	return nil
}

func (p *Projector) consumeTopic(ctx context.Context, reader *kafka.Reader) error {
	for {
		msg, err := reader.ReadMessage(ctx)
		if err != nil {
			return err
		}
		p.process(ctx, msg)
	}
}

// process decodes and projects one message. Failures are logged and, when a
// Rejecter is set, recorded; the loop always moves on.
func (p *Projector) process(ctx context.Context, msg kafka.Message) {
	evt, err := kstream.DecodeEvent(msg)
	if err != nil {
		log.Printf("Projectors: skipping message: %v", err)
		if p.rejects != nil {
			p.logReject(p.rejects.WriteRaw(ctx, msg.Topic, msg.Value, err))
		}
		return
	}
	if err := p.Handle(ctx, evt); err != nil && p.rejects != nil {
		p.logReject(p.rejects.WriteEvent(ctx, evt, err))
	}
}

func (p *Projector) logReject(err error) {
	if err != nil {
		log.Printf("Projectors: failed to record rejection: %v", err)
	}
}
