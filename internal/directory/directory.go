// Package directory resolves user ids and tenant email accounts via
// the CRM REST API. The timeline enrichers are its only consumers.
package directory

import (
	"context"
	"fmt"

	"github.com/nhle/crm-timeline/internal/model"
	"github.com/nhle/crm-timeline/internal/rest"
)

// UserDirectory resolves a user id to display data.
type UserDirectory interface {
	// Get resolves a user id. With includeInactive set, deactivated
	// users still resolve instead of answering 404.
	Get(ctx context.Context, id string, includeInactive bool) (*model.UserSummary, error)
}

// EmailAccount is one of the tenant's own email accounts.
type EmailAccount struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Label        string `json:"label"`
}

// EmailAccounts lists the tenant's email accounts, used to flag
// outbound messages.
type EmailAccounts interface {
	List(ctx context.Context) ([]EmailAccount, error)
}

// MessageSource fetches an email message's raw RFC 5322 source.
type MessageSource interface {
	Source(ctx context.Context, messageID string) ([]byte, error)
}

// HTTPDirectory implements UserDirectory, EmailAccounts, and
// MessageSource against the REST backend.
type HTTPDirectory struct {
	rc *rest.Client
}

// NewHTTPDirectory creates a directory client on top of the shared
// REST client.
func NewHTTPDirectory(rc *rest.Client) *HTTPDirectory {
	return &HTTPDirectory{rc: rc}
}

// Get resolves a user id to its display summary.
func (d *HTTPDirectory) Get(
	ctx context.Context,
	id string,
	includeInactive bool,
) (*model.UserSummary, error) {
	path := "/api/users/" + id + "/"
	if includeInactive {
		path += "?include_inactive=true"
	}

	var user model.UserSummary
	if err := d.rc.Get(ctx, path, &user); err != nil {
		return nil, fmt.Errorf("resolving user %s: %w", id, err)
	}
	return &user, nil
}

// accountsResponse is the list envelope for email accounts.
type accountsResponse struct {
	Results []EmailAccount `json:"results"`
}

// List returns the tenant's configured email accounts.
func (d *HTTPDirectory) List(ctx context.Context) ([]EmailAccount, error) {
	var resp accountsResponse
	if err := d.rc.Get(ctx, "/api/messaging/accounts/", &resp); err != nil {
		return nil, fmt.Errorf("listing email accounts: %w", err)
	}
	return resp.Results, nil
}

// Source fetches the raw MIME source of an email message.
func (d *HTTPDirectory) Source(ctx context.Context, messageID string) ([]byte, error) {
	raw, err := d.rc.GetRaw(ctx, "/api/messaging/email/"+messageID+"/source/")
	if err != nil {
		return nil, fmt.Errorf("fetching message source %s: %w", messageID, err)
	}
	return raw, nil
}
