package config

import "github.com/kelseyhightower/envconfig"

type APIConfig struct {
	DBDSN       string `envconfig:"DB_DSN" required:"true"`
	Port        string `envconfig:"PORT" default:"8080"`
	MetricsPort string `envconfig:"METRICS_PORT" default:"9090"`
	LogFormat   string `envconfig:"LOG_FORMAT" default:"json"`

	// Which delivery channel the campaign runner sends through:
	// basic | oauth2_smtp | vendor_api
	Transport string `envconfig:"TRANSPORT" default:"basic"`

	// SMTP (basic and oauth2_smtp transports)
	SMTPHost     string `envconfig:"SMTP_HOST" default:"localhost"`
	SMTPPort     string `envconfig:"SMTP_PORT" default:"587"`
	SMTPUser     string `envconfig:"SMTP_USER"`
	SMTPPassword string `envconfig:"SMTP_PASSWORD"`

	// Google OAuth2 (oauth2_smtp and vendor_api transports)
	GmailClientID     string `envconfig:"GMAIL_CLIENT_ID"`
	GmailClientSecret string `envconfig:"GMAIL_CLIENT_SECRET"`
	GmailRedirectURI  string `envconfig:"GMAIL_REDIRECT_URI" default:"http://localhost:8080/v1/gmail/callback"`

	// Generative content provider
	LLMAPIKey  string `envconfig:"LLM_API_KEY"`
	LLMModel   string `envconfig:"LLM_MODEL" default:"gemini-2.0-flash"`
	LLMBaseURL string `envconfig:"LLM_BASE_URL" default:"https://generativelanguage.googleapis.com"`

	// Campaign runner
	MaxActiveCampaigns int     `envconfig:"MAX_ACTIVE_CAMPAIGNS" default:"16"`
	SendRPS            float64 `envconfig:"SEND_RPS" default:"1"`
	SendBurst          int     `envconfig:"SEND_BURST" default:"1"`
}

func LoadAPI() APIConfig {
	var cfg APIConfig
	if err := envconfig.Process("", &cfg); err != nil {
		panic(err)
	}
	return cfg
}
