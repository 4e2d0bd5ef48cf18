// Package remote reads and writes the single remote JSON document that holds
// the synchronized dataset, plus a secondary backup document.
//
// The remote service is a blob-storage API: one opaque JSON document per
// document id, GET to read, PUT to replace wholesale. Conflict policy is
// last-writer-wins at the document level; there is no field-level merge. The
// one concession to concurrent history is deletions: ids tombstoned locally
// are stripped from every written payload regardless of what the remote copy
// currently holds, so offline deletions are never resurrected by a stale
// read.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/daybook-app/daybook/internal/netclient"
	"github.com/daybook-app/daybook/internal/schema"
)

// ErrNotConfigured is returned when a remote operation is attempted without
// credentials or an endpoint. Callers treat this as "sync is off", not as a
// failure.
var ErrNotConfigured = errors.New("remote sync is not configured")

// Config identifies the remote documents and credentials.
type Config struct {
	// BaseURL is the blob service endpoint, e.g. https://api.example.com.
	BaseURL string

	// DocumentID is the primary sync document id.
	DocumentID string

	// BackupID is the manual safety-copy document id. Optional; backup
	// operations fail with ErrNotConfigured when empty.
	BackupID string

	// Token is the bearer credential sent with every call.
	Token string
}

// Configured reports whether the primary document can be reached.
func (c Config) Configured() bool {
	return c.BaseURL != "" && c.DocumentID != "" && c.Token != ""
}

// Doer is the transport surface the client needs; *netclient.Client
// implements it.
type Doer interface {
	Do(ctx context.Context, req netclient.Request) (*netclient.Response, error)
}

// Client performs typed operations against the remote documents.
type Client struct {
	cfg Config
	net Doer
}

// New creates a remote document client on the given transport.
func New(cfg Config, net Doer) *Client {
	return &Client{cfg: cfg, net: net}
}

// Configured reports whether this client has a usable primary document.
func (c *Client) Configured() bool {
	return c.cfg.Configured()
}

func (c *Client) documentURL(id string) string {
	return fmt.Sprintf("%s/documents/%s", strings.TrimRight(c.cfg.BaseURL, "/"), id)
}

func (c *Client) header() http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+c.cfg.Token)
	h.Set("Content-Type", "application/json")
	return h
}

// Load fetches and parses the primary document. Transport errors from the
// network client pass through unchanged.
func (c *Client) Load(ctx context.Context) (*schema.Dataset, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	resp, err := c.net.Do(ctx, netclient.Request{
		Method: http.MethodGet,
		URL:    c.documentURL(c.cfg.DocumentID),
		Header: c.header(),
	})
	if err != nil {
		return nil, err
	}

	dataset, err := schema.ParseDataset(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote document is not a valid dataset: %w", err)
	}
	return dataset, nil
}

// Push writes the dataset to the primary document, stripping every
// tombstoned id first. The local copy (minus tombstones) is authoritative
// and overwrites the remote document wholesale.
func (c *Client) Push(ctx context.Context, dataset *schema.Dataset, tombstones schema.Tombstones) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	body, err := StripTombstones(dataset, tombstones).Encode()
	if err != nil {
		return err
	}

	_, err = c.net.Do(ctx, netclient.Request{
		Method: http.MethodPut,
		URL:    c.documentURL(c.cfg.DocumentID),
		Header: c.header(),
		Body:   body,
	})
	return err
}

// Backup writes the dataset to the backup document, untouched by tombstones:
// a backup is a verbatim safety copy of current local state.
func (c *Client) Backup(ctx context.Context, dataset *schema.Dataset) error {
	if !c.Configured() || c.cfg.BackupID == "" {
		return ErrNotConfigured
	}

	body, err := dataset.Encode()
	if err != nil {
		return err
	}

	_, err = c.net.Do(ctx, netclient.Request{
		Method: http.MethodPut,
		URL:    c.documentURL(c.cfg.BackupID),
		Header: c.header(),
		Body:   body,
	})
	return err
}

// RestoreFromBackup fetches and parses the backup document.
func (c *Client) RestoreFromBackup(ctx context.Context) (*schema.Dataset, error) {
	if !c.Configured() || c.cfg.BackupID == "" {
		return nil, ErrNotConfigured
	}

	resp, err := c.net.Do(ctx, netclient.Request{
		Method: http.MethodGet,
		URL:    c.documentURL(c.cfg.BackupID),
		Header: c.header(),
	})
	if err != nil {
		return nil, err
	}

	dataset, err := schema.ParseDataset(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backup document is not a valid dataset: %w", err)
	}
	return dataset, nil
}

// ValidateCredentials performs a lightweight authenticated read and reports
// whether the configuration is usable. Every failure, transport or auth,
// collapses to false so callers can present a single pass/fail signal.
func (c *Client) ValidateCredentials(ctx context.Context) bool {
	if !c.Configured() {
		return false
	}

	_, err := c.net.Do(ctx, netclient.Request{
		Method: http.MethodGet,
		URL:    c.documentURL(c.cfg.DocumentID),
		Header: c.header(),
	})
	return err == nil
}

// StripTombstones returns a copy of the dataset with every tombstoned id
// removed from its collection.
func StripTombstones(dataset *schema.Dataset, tombstones schema.Tombstones) *schema.Dataset {
	out := dataset.Clone()
	for id := range tombstones[schema.KindEntries] {
		delete(out.Entries, id)
	}
	for id := range tombstones[schema.KindFoodItems] {
		delete(out.FoodItems, id)
	}
	for id := range tombstones[schema.KindActivityItems] {
		delete(out.ActivityItems, id)
	}
	for id := range tombstones[schema.KindFoodCategories] {
		delete(out.FoodCategories, id)
	}
	for id := range tombstones[schema.KindActivityCategories] {
		delete(out.ActivityCategories, id)
	}
	for id := range tombstones[schema.KindDashboardCards] {
		delete(out.DashboardCards, id)
	}
	return out
}
