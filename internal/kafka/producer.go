package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"

	"github.com/ebcbot/waitlist/pkg/logger"
)

type Producer interface {
	PublishWaitlistStarted(ctx context.Context, event WaitlistStartedEvent) error
	PublishWaitlistJoined(ctx context.Context, event WaitlistJoinedEvent) error
	PublishWaitlistLeft(ctx context.Context, event WaitlistLeftEvent) error
	PublishMemberPulled(ctx context.Context, event MemberPulledEvent) error
	PublishHostChanged(ctx context.Context, event HostChangedEvent) error
	PublishWaitlistEnded(ctx context.Context, event WaitlistEndedEvent) error
	Close() error
}

type implProducer struct {
	l    logger.Logger
	prod sarama.SyncProducer
}

func NewProducer(prod sarama.SyncProducer, l logger.Logger) Producer {
	return &implProducer{
		l:    l,
		prod: prod,
	}
}

func (p *implProducer) PublishWaitlistStarted(ctx context.Context, event WaitlistStartedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicWaitlistStarted, event.RoomID, event)
}

func (p *implProducer) PublishWaitlistJoined(ctx context.Context, event WaitlistJoinedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicWaitlistJoined, event.RoomID, event)
}

func (p *implProducer) PublishWaitlistLeft(ctx context.Context, event WaitlistLeftEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicWaitlistLeft, event.RoomID, event)
}

func (p *implProducer) PublishMemberPulled(ctx context.Context, event MemberPulledEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicMemberPulled, event.RoomID, event)
}

func (p *implProducer) PublishHostChanged(ctx context.Context, event HostChangedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicHostChanged, event.RoomID, event)
}

func (p *implProducer) PublishWaitlistEnded(ctx context.Context, event WaitlistEndedEvent) error {
	event.Timestamp = time.Now()
	return p.publish(ctx, TopicWaitlistEnded, event.RoomID, event)
}

func (p *implProducer) publish(ctx context.Context, topic, key string, event any) error {
	val, err := json.Marshal(event)
	if err != nil {
		p.l.Errorf(ctx, "kafka.producer.publish: %v", err)
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key), // Partition by room_id for ordering
		Value: sarama.ByteEncoder(val),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("timestamp"),
				Value: []byte(time.Now().Format(time.RFC3339)),
			},
		},
	}

	_, _, err = p.prod.SendMessage(msg)
	return err
}

func (p *implProducer) Close() error {
	return p.prod.Close()
}
