package config

const (
	// ProviderNone disables exchange event publishing.
	ProviderNone = "none"

	// ProviderKafka publishes exchange events to Kafka.
	ProviderKafka = "kafka"

	defaultClientAPITarget = "http://localhost:8000"
	defaultClientTimeout   = "30s"

	defaultEventStreamTopic = "cloudchat.exchanges"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Client: ClientConfig{
			APITarget: defaultClientAPITarget,
			Timeout:   defaultClientTimeout,
		},
		EventStream: EventStreamConfig{
			Provider: ProviderNone,
			Topic:    defaultEventStreamTopic,
		},
	}
}
