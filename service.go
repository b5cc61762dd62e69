package portal

// ServiceOption configures AuthService and UserService.
type ServiceOption func(*serviceConfig)

type serviceConfig struct {
	logger   Logger
	activity ActivitySink
}

// WithServiceLogger overrides the logger, which defaults to the client's.
func WithServiceLogger(l Logger) ServiceOption {
	return func(c *serviceConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithActivitySink sets where activity events go.
func WithActivitySink(s ActivitySink) ServiceOption {
	return func(c *serviceConfig) {
		c.activity = s
	}
}

func newServiceConfig(c *Client, opts []ServiceOption) serviceConfig {
	cfg := serviceConfig{logger: c.Logger()}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	cfg.logger = normalizeLogger(cfg.logger)
	cfg.activity = normalizeActivitySink(cfg.activity)
	return cfg
}
