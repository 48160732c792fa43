package rabbitmq

import (
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/paywall-access/internal/models"
)

// PublishMessage публикует сообщение в RabbitMQ.
func PublishMessage(ch *amqp.Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Publisher публикует типизированные события сервиса в общий обменник.
type Publisher struct {
	ch *amqp.Channel
}

// NewPublisher создает новый экземпляр Publisher.
func NewPublisher(ch *amqp.Channel) *Publisher {
	return &Publisher{ch: ch}
}

// PublishLoginLink ставит в очередь письмо со ссылкой входа.
func (p *Publisher) PublishLoginLink(msg models.LoginLinkEmail) error {
	return PublishMessage(p.ch, Exchange, RoutingKeyLoginLink, msg)
}

// PublishSubscriberChanged публикует событие изменения записи подписчика.
func (p *Publisher) PublishSubscriberChanged(event models.SubscriberChangedEvent) error {
	return PublishMessage(p.ch, Exchange, RoutingKeySubscriberChanged, event)
}
