package model

// TriggerKind identifies which notifier backend a trigger dispatches to.
type TriggerKind string

const (
	TriggerKindSlack    TriggerKind = "slack"
	TriggerKindEmail    TriggerKind = "email"
	TriggerKindDiscord  TriggerKind = "discord"
	TriggerKindTelegram TriggerKind = "telegram"
	TriggerKindWebhook  TriggerKind = "webhook"
	TriggerKindScript   TriggerKind = "script"
)

// SlackConfig renders and posts to an incoming webhook.
type SlackConfig struct {
	WebhookURL    string `json:"webhook_url"`
	TitleTemplate string `json:"title_template"`
	BodyTemplate  string `json:"body_template"`
}

// EmailConfig sends via SMTPS/STARTTLS to one or more recipients.
type EmailConfig struct {
	Host            string   `json:"host"`
	Port            int      `json:"port"`
	Username        string   `json:"username"`
	Password        string   `json:"password"`
	Sender          string   `json:"sender"`
	Recipients      []string `json:"recipients"`
	SubjectTemplate string   `json:"subject_template"`
	BodyTemplate    string   `json:"body_template"`
}

// DiscordConfig renders and posts to an incoming webhook.
type DiscordConfig struct {
	WebhookURL    string `json:"webhook_url"`
	TitleTemplate string `json:"title_template"`
	BodyTemplate  string `json:"body_template"`
}

// TelegramConfig sends a message through the Bot API.
type TelegramConfig struct {
	Token              string `json:"token"`
	ChatID             int64  `json:"chat_id"`
	DisableWebPreview  bool   `json:"disable_web_preview"`
	MessageTemplate    string `json:"message_template"`
}

// WebhookConfig posts an arbitrary rendered body to a configured URL.
type WebhookConfig struct {
	URL          string            `json:"url"`
	Method       string            `json:"method"`
	Headers      map[string]string `json:"headers,omitempty"`
	Secret       string            `json:"secret,omitempty"`
	BodyTemplate string            `json:"body_template"`
}

// ScriptConfig invokes an external process per §4.9.
type ScriptConfig struct {
	Path      string   `json:"path"`
	TimeoutMS int64    `json:"timeout_ms"`
	Args      []string `json:"args,omitempty"`
}

// Trigger is an immutable, post-startup configured notification
// destination plus its rendering templates. Exactly one of the typed
// fields is populated, selected by Kind.
type Trigger struct {
	Name     string          `json:"name"`
	Kind     TriggerKind     `json:"kind"`
	Slack    *SlackConfig    `json:"slack,omitempty"`
	Email    *EmailConfig    `json:"email,omitempty"`
	Discord  *DiscordConfig  `json:"discord,omitempty"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Webhook  *WebhookConfig  `json:"webhook,omitempty"`
	Script   *ScriptConfig   `json:"script,omitempty"`
}

// DefaultEmailPort is the implicit-TLS SMTPS port; other ports negotiate
// STARTTLS per spec.md §3.
const DefaultEmailPort = 465
