// Package notify delivers lifecycle events to a Discord-compatible
// webhook. Delivery is fire and forget: failures are logged and never
// reach the caller.
package notify

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/craftwatch/core/encoding/json"
	"github.com/craftwatch/core/log"
)

type Notifier interface {
	// Notify posts an embed with the given title and message. It returns
	// immediately, delivery happens in the background.
	Notify(title, message string)
}

// Config is the configuration for a webhook notifier.
type Config struct {
	// URL is the webhook endpoint. An empty URL yields a notifier
	// that discards everything.
	URL string

	// Color is the accent color of the embeds, 24 bit RGB.
	// Defaults to 0x2ecc71.
	Color int

	Client *http.Client
	Logger log.Logger
}

type webhook struct {
	url    string
	color  int
	client *http.Client
	logger log.Logger
}

func New(config Config) Notifier {
	if len(config.URL) == 0 {
		return NewNull()
	}

	w := &webhook{
		url:    config.URL,
		color:  config.Color,
		client: config.Client,
		logger: config.Logger,
	}

	if w.color == 0 {
		w.color = 0x2ecc71
	}

	if w.logger == nil {
		w.logger = log.New("")
	}

	if w.client == nil {
		tr := http.DefaultTransport.(*http.Transport).Clone()
		tr.MaxIdleConns = 10
		tr.IdleConnTimeout = 30 * time.Second

		w.client = &http.Client{
			Transport: tr,
			Timeout:   5 * time.Second,
		}
	}

	return w
}

type embed struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       int    `json:"color"`
	Timestamp   string `json:"timestamp"`
}

type message struct {
	Embeds []embed `json:"embeds"`
}

func (w *webhook) Notify(title, text string) {
	go w.send(title, text)
}

func (w *webhook) send(title, text string) {
	data, err := json.Marshal(message{
		Embeds: []embed{
			{
				Title:       title,
				Description: text,
				Color:       w.color,
				Timestamp:   time.Now().UTC().Format(time.RFC3339),
			},
		},
	})
	if err != nil {
		w.logger.WithError(err).Warn().Log("Encoding webhook payload failed")
		return
	}

	res, err := w.client.Post(w.url, "application/json", bytes.NewReader(data))
	if err != nil {
		w.logger.WithError(err).Warn().Log("Delivering webhook failed")
		return
	}

	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		w.logger.WithError(fmt.Errorf("response code %d", res.StatusCode)).Warn().Log("Webhook rejected")
	}
}

type null struct{}

// NewNull returns a notifier that discards all notifications.
func NewNull() Notifier {
	return null{}
}

func (null) Notify(title, message string) {}
