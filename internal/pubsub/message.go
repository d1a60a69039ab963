package pubsub

// Message is a payload delivered to a subscribed channel
type Message struct {
	// Pattern is the matching pattern for messages received through PSubscribe, empty otherwise
	Pattern string
	Channel string
	Payload []byte
}
