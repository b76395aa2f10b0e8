package listen

// Interface is a subscription to upstream metadata-available announcements.
// Subscribe blocks, invoking the processor once per announcement; a processor
// error is logged and the announcement dropped, it never stops the
// subscription.
type Interface interface {
	Init(config map[string]string) error
	Subscribe(processor func(body []byte) error) error
	Close() error
}
