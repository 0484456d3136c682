// Package alert delivers listing notifications to chat and webhook
// destinations.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/elonfeng/rentradar/pkg/listing"
)

// maxListed bounds how many runner-up listings a message shows.
const maxListed = 5

// Notification is the data sent to alert destinations.
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	URL      string            `json:"url"`
	Score    float64           `json:"score"`
	Listing  *listing.Listing  `json:"listing,omitempty"`
	Listings []listing.Listing `json:"listings,omitempty"`
}

// NewTopListing builds the notification sent when the best listing changes.
func NewTopListing(top listing.Listing, others []listing.Listing) *Notification {
	body := summary(&top)
	if len(others) > maxListed {
		others = others[:maxListed]
	}
	return &Notification{
		Title:    "New top rental: " + top.Address,
		Body:     body,
		URL:      top.URL,
		Score:    top.Score,
		Listing:  &top,
		Listings: others,
	}
}

func summary(l *listing.Listing) string {
	s := ""
	if l.Price != nil {
		s += fmt.Sprintf("$%.0f/mo", *l.Price)
	} else {
		s += "price unknown"
	}
	if l.Bedrooms != nil && l.Bathrooms != nil {
		s += fmt.Sprintf(", %d bd / %g ba", *l.Bedrooms, *l.Bathrooms)
	}
	if l.Area != nil {
		s += fmt.Sprintf(", %d sqft", *l.Area)
	}
	if l.Distance != nil {
		s += fmt.Sprintf(", %.1f mi", *l.Distance)
	}
	if l.DateAvailable != "" {
		s += ", available " + l.DateAvailable
	}
	return s
}

// Notifier delivers alerts to a specific destination.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n *Notification) error
}

// Manager broadcasts notifications to all registered notifiers.
type Manager struct {
	notifiers []Notifier
}

// NewManager creates a new alert manager.
func NewManager(notifiers []Notifier) *Manager {
	return &Manager{notifiers: notifiers}
}

// HasNotifiers returns true if at least one notifier is configured.
func (m *Manager) HasNotifiers() bool {
	return m != nil && len(m.notifiers) > 0
}

// Names lists the configured destinations.
func (m *Manager) Names() []string {
	if m == nil {
		return nil
	}
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return names
}

// Broadcast sends a notification to all registered notifiers. Every
// notifier is tried; failures are joined.
func (m *Manager) Broadcast(ctx context.Context, n *Notification) error {
	if m == nil {
		return nil
	}
	var errs []error
	for _, notifier := range m.notifiers {
		if err := notifier.Send(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", notifier.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func newClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON sends payload and accepts any 2xx reply.
func postJSON(ctx context.Context, client *http.Client, name, url string, payload any, headers map[string]string) error {
	body, ok := payload.([]byte)
	if !ok {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s payload: %w", name, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "rentradar/1.0")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("send %s: %w", name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s status %d", name, resp.StatusCode)
	}
	return nil
}
