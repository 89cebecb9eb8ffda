package mail

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/internal/model"
	"github.com/BrandonDonnellDesign/sensor-tracker-sub000/pkg/config"
)

const gmailUser = "me"

// GmailClient fetches messages through the Gmail API. Tokens are read from
// disk, one file per user; acquisition and refresh belong to the auth
// service, not this subsystem.
type GmailClient struct {
	oauthConfig *oauth2.Config
	tokenDir    string
	logger      *zap.Logger
}

func NewGmailClient(cfg config.GmailConfig, logger *zap.Logger) (*GmailClient, error) {
	b, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret file: %w", err)
	}
	oauthConfig, err := google.ConfigFromJSON(b, gmail.GmailReadonlyScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret file: %w", err)
	}
	return &GmailClient{
		oauthConfig: oauthConfig,
		tokenDir:    cfg.TokenDir,
		logger:      logger,
	}, nil
}

func (c *GmailClient) tokenForUser(userID int64) (*oauth2.Token, error) {
	path := filepath.Join(c.tokenDir, fmt.Sprintf("%d.json", userID))
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("no mail token for user %d: %w", userID, err)
	}
	defer f.Close()

	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, fmt.Errorf("malformed mail token for user %d: %w", userID, err)
	}
	return tok, nil
}

// SearchEmails lists messages matching the query and fetches each in full.
func (c *GmailClient) SearchEmails(ctx context.Context, userID int64, query string, maxResults int) ([]model.RawEmail, error) {
	tok, err := c.tokenForUser(userID)
	if err != nil {
		return nil, err
	}

	httpClient := c.oauthConfig.Client(ctx, tok)
	srv, err := gmail.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}

	list, err := srv.Users.Messages.List(gmailUser).
		Q(query).
		MaxResults(int64(maxResults)).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("message list failed: %w", err)
	}

	emails := make([]model.RawEmail, 0, len(list.Messages))
	for _, m := range list.Messages {
		full, err := srv.Users.Messages.Get(gmailUser, m.Id).Format("full").Context(ctx).Do()
		if err != nil {
			// One unreadable message should not sink the batch.
			c.logger.Warn("Failed to fetch message",
				zap.String("message_id", m.Id),
				zap.Error(err),
			)
			continue
		}
		emails = append(emails, parseMessage(full))
	}

	return emails, nil
}

func parseMessage(msg *gmail.Message) model.RawEmail {
	email := model.RawEmail{MessageID: msg.Id}

	if msg.Payload != nil {
		for _, header := range msg.Payload.Headers {
			switch header.Name {
			case "Subject":
				email.Subject = header.Value
			case "From":
				email.From = header.Value
			case "Date":
				email.ReceivedAt = parseDate(header.Value)
			}
		}
		email.Body = plainTextBody(msg.Payload)
	}

	if email.ReceivedAt.IsZero() && msg.InternalDate > 0 {
		email.ReceivedAt = time.UnixMilli(msg.InternalDate)
	}

	return email
}

// Providers are sloppy about Date header formats; try the common layouts.
var dateLayouts = []string{
	time.RFC1123Z,
	"Mon, 2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	time.RFC1123,
	time.RFC822,
}

func parseDate(value string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}

	// Strip a trailing "(TZ)" comment and retry.
	if open := strings.LastIndex(value, " ("); open != -1 {
		if closing := strings.LastIndex(value, ")"); closing > open {
			stripped := strings.TrimSpace(value[:open] + value[closing+1:])
			for _, layout := range dateLayouts {
				if t, err := time.Parse(layout, stripped); err == nil {
					return t
				}
			}
		}
	}

	return time.Time{}
}

func plainTextBody(payload *gmail.MessagePart) string {
	if payload.MimeType == "text/plain" && payload.Body != nil && payload.Body.Data != "" {
		if data, err := base64.URLEncoding.DecodeString(payload.Body.Data); err == nil {
			return string(data)
		}
	}
	for _, part := range payload.Parts {
		mime := strings.ToLower(part.MimeType)
		if strings.HasPrefix(mime, "text/") || strings.HasPrefix(mime, "multipart/") {
			if body := plainTextBody(part); body != "" {
				return body
			}
		}
	}
	return ""
}
