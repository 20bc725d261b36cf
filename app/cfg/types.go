package cfg

import "time"

const (
	GatewayAPI      = "api"
	GatewaySnapshot = "snapshot"
)

type Cfg struct {
	// Content source configuration
	ContentAPIURL string
	AccessToken   string
	TokenSecret   string
	Gateway       string
	SnapshotPath  string
	SnapshotSeed  string
	BlogFeedURL   string

	// Dashboard configuration
	DashboardConfig  string
	PollInterval     int
	FetchConcurrency int
	RequestTimeout   int

	// HTTP server configuration
	Port         string
	APIAccessKey string

	// Application metadata
	UserAgent string
	Timezone  string
	Debug     bool
	Version   string
}

func (c *Cfg) PollEvery() time.Duration {
	return time.Duration(c.PollInterval) * time.Second
}

func (c *Cfg) Timeout() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}
