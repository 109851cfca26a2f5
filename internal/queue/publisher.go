package queue

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aleixpons/padel-club-backend/internal/model"
	"github.com/aleixpons/padel-club-backend/internal/utils"
)

// Publisher sends lifecycle events to RabbitMQ. Publishing is best
// effort: failures are logged, never surfaced to the request, since a
// committed reservation must not be undone by a broker outage.
type Publisher struct {
	url string
}

// NewPublisher builds a publisher for the given AMQP URL. An empty URL
// yields a disabled publisher that drops every event.
func NewPublisher(url string) *Publisher { return &Publisher{url: url} }

// SlotReserved publishes a SlotReservedEvent for a confirmed slot.
func (p *Publisher) SlotReserved(ctx context.Context, sl model.Slot, r model.Reservation) {
	players := make([]string, 0, len(sl.Occupants)+len(sl.Guests))
	for _, m := range sl.Occupants {
		players = append(players, m.Name+" "+m.Surname)
	}
	for _, g := range sl.Guests {
		players = append(players, g.Name)
	}
	p.publish(ctx, SlotReservedQueue, SlotReservedEvent{
		MessageID:     uuid.NewString(),
		ReservationID: r.ID,
		SlotID:        sl.ID,
		SlotName:      sl.Name,
		ClubID:        sl.ClubID,
		Date:          utils.FormatDate(sl.Date),
		Hour:          sl.Hour,
		Price:         sl.Price.StringFixed(2),
		ReservedBy:    r.ReservedBy,
		Players:       players,
		ReservedAt:    time.Now().UTC().Format(time.RFC3339),
	})
}

// SlotExpired publishes a SlotExpiredEvent for a terminal slot.
func (p *Publisher) SlotExpired(ctx context.Context, sl model.Slot) {
	p.publish(ctx, SlotExpiredQueue, SlotExpiredEvent{
		MessageID: uuid.NewString(),
		SlotID:    sl.ID,
		SlotName:  sl.Name,
		ClubID:    sl.ClubID,
		Date:      utils.FormatDate(sl.Date),
		Hour:      sl.Hour,
		ExpiredAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (p *Publisher) publish(ctx context.Context, queueName string, event interface{}) {
	if p.url == "" {
		return
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		log.Printf("rabbitmq: dial failed: %v", err)
		return
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Printf("rabbitmq: channel open failed: %v", err)
		return
	}
	defer func() { _ = ch.Close() }()

	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		log.Printf("rabbitmq: queue declare failed: %v", err)
		return
	}
	body, err := json.Marshal(event)
	if err != nil {
		log.Printf("rabbitmq: marshal event failed: %v", err)
		return
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		log.Printf("rabbitmq: publish failed: %v", err)
	}
}
