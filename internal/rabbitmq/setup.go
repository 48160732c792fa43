package rabbitmq

import (
	"fmt"

	"github.com/streadway/amqp"
)

// Exchange — единственный обменник сервиса, тип direct.
const Exchange = "notifications"

// Маршрутные ключи обменника.
const (
	RoutingKeyLoginLink         = "login.link"
	RoutingKeySubscriberChanged = "subscriber.changed"
)

// QueueConfig описывает очередь и её привязку к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// GetNotificationQueues возвращает очереди сервиса: письма со ссылками
// входа и события изменения подписчиков для внешних интеграций.
func GetNotificationQueues() []QueueConfig {
	return []QueueConfig{
		{QueueName: "notifications.login_links", RoutingKey: RoutingKeyLoginLink},
		{QueueName: "notifications.subscriber_events", RoutingKey: RoutingKeySubscriberChanged},
	}
}

// SetupChannel открывает канал, объявляет обменник и привязывает к нему
// перечисленные очереди.
func SetupChannel(conn *amqp.Connection, queues []QueueConfig) (*amqp.Channel, error) {
	const op = "rabbitmq.SetupChannel"

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	err = ch.ExchangeDeclare(
		Exchange,
		"direct",
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for _, q := range queues {
		_, err := ch.QueueDeclare(
			q.QueueName,
			true,
			false,
			false,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to declare queue %s: %w", op, q.QueueName, err)
		}

		err = ch.QueueBind(
			q.QueueName,
			q.RoutingKey,
			Exchange,
			false,
			nil,
		)
		if err != nil {
			return nil, fmt.Errorf("%s: failed to bind queue %s with routing key %s: %w", op, q.QueueName, q.RoutingKey, err)
		}
	}

	return ch, nil
}
