package cfg

type Cfg struct {
	// Database configuration
	DBPath string

	// Application configuration
	SourcesDir        string
	Port              string
	WorkerCount       int
	SchedulerInterval int
	JobTimeout        int
	NotifyWorkers     int
	APIAccessKey      string

	// Scraping configuration
	UserAgent        string
	FetchTimeout     int
	RenderTimeout    int
	ChromePath       string
	DisableRendering bool

	// Notification channels
	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
	SMTPHost         string
	SMTPPort         int
	SMTPUser         string
	SMTPPassword     string
	SMTPFrom         string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
