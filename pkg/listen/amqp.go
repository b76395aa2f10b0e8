package listen

import (
	"github.com/sirupsen/logrus"
	"github.com/streadway/amqp"
)

// AmqpListen consumes metadata-available announcements from a fanout
// exchange. Every consumer binds its own queue, so multiple indexers each
// see every announcement.
type AmqpListen struct {
	Logger *logrus.Entry

	client   *amqp.Connection
	channel  *amqp.Channel
	exchange string
	queue    string
}

func (n *AmqpListen) Init(config map[string]string) error {
	n.exchange = config["exchange"]
	n.queue = config["queue"]

	client, err := amqp.Dial(config["amqp-url"])
	if err != nil {
		return err
	}
	n.client = client

	ch, err := client.Channel()
	if err != nil {
		return err
	}
	n.channel = ch

	err = ch.ExchangeDeclare(
		n.exchange,
		"fanout",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	_, err = ch.QueueDeclare(
		n.queue, // name
		false,   // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	return err
}

func (n *AmqpListen) Subscribe(processor func(body []byte) error) error {
	n.Logger.Infof("subscribe to announcements on exchange %s", n.exchange)

	err := n.channel.QueueBind(
		n.queue,    // queue name
		"",         // routing key
		n.exchange, // exchange
		false,
		nil)
	if err != nil {
		return err
	}

	msgs, err := n.channel.Consume(
		n.queue, // queue
		"",      // consumer
		true,    // auto-ack
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return err
	}

	for d := range msgs {
		n.Logger.Debugf("announcement: %s", d.Body)
		if err := processor(d.Body); err != nil {
			n.Logger.Errorf("could not process announcement: %s", err)
		}
	}

	return nil
}

func (n *AmqpListen) Close() error {
	if err := n.channel.Close(); err != nil {
		return err
	}
	return n.client.Close()
}
