package listen

import (
	"github.com/go-redis/redis"
	"github.com/sirupsen/logrus"
)

// RedisListen consumes metadata-available announcements from a redis pub/sub
// channel. Pub/sub delivery is fire-and-forget: announcements published
// while the indexer is down are lost, which a periodic full run papers over.
type RedisListen struct {
	Logger *logrus.Entry

	client *redis.Client
	pubSub *redis.PubSub
	queue  string
}

func (n *RedisListen) Init(config map[string]string) error {
	n.client = redis.NewClient(&redis.Options{
		Addr:     config["addr"],
		Password: config["password"],
		DB:       0, // use default DB
	})
	n.queue = config["queue"]

	_, err := n.client.Ping().Result()
	return err
}

func (n *RedisListen) Subscribe(processor func(body []byte) error) error {
	n.Logger.Infof("subscribe to announcements on channel %s", n.queue)

	n.pubSub = n.client.Subscribe(n.queue)
	for {
		msg, err := n.pubSub.ReceiveMessage()
		if err != nil {
			return err
		}
		n.Logger.Debugf("announcement on %s: %s", msg.Channel, msg.Payload)
		if err := processor([]byte(msg.Payload)); err != nil {
			n.Logger.Errorf("could not process announcement: %s", err)
		}
	}
}

func (n *RedisListen) Close() error {
	if n.pubSub != nil {
		if err := n.pubSub.Close(); err != nil {
			return err
		}
	}
	return n.client.Close()
}
