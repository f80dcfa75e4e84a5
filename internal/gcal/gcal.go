// Package gcal is the calendar-sync collaborator: it owns the Google Calendar
// connection and replaces the target calendar's contents with the projected
// schedule. Event descriptors are submitted field-for-field; no schedule
// logic lives here.
package gcal

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"unisync/internal/config"
	appLog "unisync/internal/log"
	"unisync/internal/model"
)

// Client wraps an authorized Calendar service bound to one target calendar.
type Client struct {
	svc        *calendar.Service
	calendarID string
}

// New builds an authorized client from the configured OAuth client secret and
// cached token. A missing or expired token triggers the installed-app consent
// flow: the auth URL is printed and the code read from stdin.
func New(ctx context.Context, cfg *config.Config) (*Client, error) {
	secret, err := os.ReadFile(cfg.ClientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("read client secret: %w", err)
	}

	oauthCfg, err := google.ConfigFromJSON(secret, calendar.CalendarScope)
	if err != nil {
		return nil, fmt.Errorf("parse client secret: %w", err)
	}

	token, err := tokenFromFile(cfg.TokenPath)
	if err != nil {
		token, err = tokenFromConsent(ctx, oauthCfg)
		if err != nil {
			return nil, err
		}
		if err := saveToken(cfg.TokenPath, token); err != nil {
			appLog.Error("token cache save failed", err, "path", cfg.TokenPath)
		}
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(oauthCfg.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("build calendar service: %w", err)
	}

	return &Client{svc: svc}, nil
}

// EnsureCalendar binds the client to the calendar with the given summary,
// creating it when absent.
func (c *Client) EnsureCalendar(ctx context.Context, summary, timezone string) error {
	pageToken := ""
	for {
		list, err := c.svc.CalendarList.List().PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("list calendars: %w", err)
		}
		for _, item := range list.Items {
			if item.Summary == summary {
				c.calendarID = item.Id
				appLog.Info("calendar found", "summary", summary, "id", item.Id)
				return nil
			}
		}
		pageToken = list.NextPageToken
		if pageToken == "" {
			break
		}
	}

	created, err := c.svc.Calendars.Insert(&calendar.Calendar{
		Summary:  summary,
		TimeZone: timezone,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("create calendar %q: %w", summary, err)
	}

	c.calendarID = created.Id
	appLog.Info("calendar created", "summary", summary, "id", created.Id)
	return nil
}

// Clear deletes every event on the bound calendar so the fresh projection
// fully replaces the previous sync.
func (c *Client) Clear(ctx context.Context) error {
	if c.calendarID == "" {
		return fmt.Errorf("no calendar bound; call EnsureCalendar first")
	}

	var ids []string
	pageToken := ""
	for {
		events, err := c.svc.Events.List(c.calendarID).PageToken(pageToken).Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("list events: %w", err)
		}
		for _, ev := range events.Items {
			ids = append(ids, ev.Id)
		}
		pageToken = events.NextPageToken
		if pageToken == "" {
			break
		}
	}

	for _, id := range ids {
		if err := c.svc.Events.Delete(c.calendarID, id).Context(ctx).Do(); err != nil {
			return fmt.Errorf("delete event %s: %w", id, err)
		}
	}

	appLog.Info("calendar cleared", "deleted", len(ids))
	return nil
}

// Insert creates one calendar event per descriptor.
func (c *Client) Insert(ctx context.Context, events []model.CalendarEvent) error {
	if c.calendarID == "" {
		return fmt.Errorf("no calendar bound; call EnsureCalendar first")
	}

	for _, event := range events {
		if _, err := c.svc.Events.Insert(c.calendarID, toAPIEvent(event)).Context(ctx).Do(); err != nil {
			return fmt.Errorf("insert event %q: %w", event.Summary, err)
		}
		appLog.Debug("event inserted", "summary", event.Summary)
	}

	appLog.Info("events inserted", "count", len(events))
	return nil
}

// toAPIEvent maps an event descriptor onto the Calendar API resource
// field-for-field.
func toAPIEvent(event model.CalendarEvent) *calendar.Event {
	overrides := make([]*calendar.EventReminder, len(event.Reminders.Overrides))
	for i, o := range event.Reminders.Overrides {
		overrides[i] = &calendar.EventReminder{Method: o.Method, Minutes: o.Minutes}
	}

	return &calendar.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Location:    event.Location,
		Start: &calendar.EventDateTime{
			DateTime: event.Start.DateTime,
			TimeZone: event.Start.TimeZone,
		},
		End: &calendar.EventDateTime{
			DateTime: event.End.DateTime,
			TimeZone: event.End.TimeZone,
		},
		ColorId:    event.ColorID,
		Recurrence: event.Recurrence,
		Reminders: &calendar.EventReminders{
			UseDefault:      event.Reminders.UseDefault,
			Overrides:       overrides,
			ForceSendFields: []string{"UseDefault"},
		},
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	token := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(token); err != nil {
		return nil, fmt.Errorf("decode cached token: %w", err)
	}
	return token, nil
}

// tokenFromConsent runs the manual consent exchange for installed apps.
func tokenFromConsent(ctx context.Context, oauthCfg *oauth2.Config) (*oauth2.Token, error) {
	url := oauthCfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline)
	fmt.Printf("Open the following link in your browser, authorize the app and paste the code here:\n%v\n> ", url)

	reader := bufio.NewReader(os.Stdin)
	code, err := reader.ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("read authorization code: %w", err)
	}

	token, err := oauthCfg.Exchange(ctx, trimNewline(code))
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(token)
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
