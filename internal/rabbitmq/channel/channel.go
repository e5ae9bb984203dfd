package channel

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of an AMQP channel the consumer and responder depend on.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	Consume(queue, consumer string,
		autoAck, exclusive, noLocal, noWait bool,
		args amqp.Table) (<-chan amqp.Delivery, error)
	// NotifyClose registers receiver for the broker-initiated close of the
	// channel. The receiver is closed on a graceful shutdown.
	NotifyClose(receiver chan *amqp.Error) chan *amqp.Error
	Close() error
}

type AmqpChannel struct {
	ch *amqp.Channel
}

func NewAmqpChannel(ch *amqp.Channel) *AmqpChannel { return &AmqpChannel{ch: ch} }

func (a *AmqpChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return a.ch.Publish(exchange, key, mandatory, immediate, msg)
}

func (a *AmqpChannel) QueueDeclare(name string,
	durable, autoDelete, exclusive, noWait bool,
	args amqp.Table) (amqp.Queue, error) {
	return a.ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, args)
}

func (a *AmqpChannel) Consume(queue, consumer string,
	autoAck, exclusive, noLocal, noWait bool,
	args amqp.Table) (<-chan amqp.Delivery, error) {
	return a.ch.Consume(queue, consumer, autoAck, exclusive, noLocal, noWait, args)
}

func (a *AmqpChannel) NotifyClose(receiver chan *amqp.Error) chan *amqp.Error {
	return a.ch.NotifyClose(receiver)
}

// Close is a no-op when the channel is already closed.
func (a *AmqpChannel) Close() error {
	if a.ch.IsClosed() {
		return nil
	}
	return a.ch.Close()
}
