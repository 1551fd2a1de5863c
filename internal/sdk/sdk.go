// Package sdk is the Go client for the save sync server API, used by the
// savectl admin CLI.
package sdk

import (
	"context"
	"fmt"
	"time"

	"github.com/imroc/req/v3"

	"github.com/pepasjc/savesync/internal/bundle"
	"github.com/pepasjc/savesync/internal/reconcile"
	"github.com/pepasjc/savesync/internal/version"
)

const (
	v1Status = "/api/v1/status"
	v1Titles = "/api/v1/titles"
	v1Names  = "/api/v1/titles/names"
	v1Saves  = "/api/v1/saves"
	v1Sync   = "/api/v1/sync"
)

type Client struct {
	http *req.Client
}

func New(baseURL, apiKey string) (*Client, error) {
	if baseURL == "" {
		return nil, ErrNoServerURL
	}

	client := req.C().
		SetBaseURL(baseURL).
		SetTimeout(5*time.Minute).
		SetCommonRetryCount(3).
		SetCommonRetryBackoffInterval(1*time.Second, 5*time.Second).
		SetCommonHeader("X-API-Key", apiKey).
		SetUserAgent("savectl/" + version.Version).
		SetJsonMarshal(jsonMarshal).
		SetJsonUnmarshal(jsonUnmarshal)

	return &Client{http: client}, nil
}

func (c *Client) Status(ctx context.Context) (*StatusResponse, error) {
	var status StatusResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&status).
		Get(v1Status)
	if err := handleAPIError(resp, err, "status"); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *Client) Titles(ctx context.Context) ([]Metadata, error) {
	var list listTitlesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&list).
		Get(v1Titles)
	if err := handleAPIError(resp, err, "list titles"); err != nil {
		return nil, err
	}
	return list.Titles, nil
}

func (c *Client) Names(ctx context.Context, codes []string) (map[string]string, error) {
	var names namesResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&namesRequest{Codes: codes}).
		SetSuccessResult(&names).
		Post(v1Names)
	if err := handleAPIError(resp, err, "lookup names"); err != nil {
		return nil, err
	}
	return names.Names, nil
}

func (c *Client) Meta(ctx context.Context, titleID string) (*Metadata, error) {
	var meta Metadata
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&meta).
		Get(fmt.Sprintf("%s/%s/meta", v1Saves, titleID))
	if err := handleAPIError(resp, err, "get metadata"); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Download fetches and decodes a title's current save bundle.
func (c *Client) Download(ctx context.Context, titleID string) (*bundle.Bundle, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/%s", v1Saves, titleID))
	if err := handleAPIError(resp, err, "download save"); err != nil {
		return nil, err
	}

	data, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("sdk: download save: %w", err)
	}
	return bundle.Decode(data)
}

// Upload encodes and pushes a bundle as the title's new current save.
func (c *Client) Upload(ctx context.Context, b *bundle.Bundle, opts *UploadOptions) (*UploadResponse, error) {
	if opts == nil {
		opts = &UploadOptions{}
	}

	data, err := bundle.Encode(b, true)
	if err != nil {
		return nil, fmt.Errorf("sdk: upload save: %w", err)
	}

	r := c.http.R().
		SetContext(ctx).
		SetRetryCount(0).
		SetContentType("application/octet-stream").
		SetBodyBytes(data)

	if opts.Force {
		r.SetQueryParam("force", "true")
	}
	if opts.Source != "" {
		r.SetQueryParam("source", opts.Source)
	}
	if opts.ConsoleID != "" {
		r.SetHeader("X-Console-ID", opts.ConsoleID)
	}

	var result UploadResponse
	resp, err := r.
		SetSuccessResult(&result).
		Post(fmt.Sprintf("%s/%s", v1Saves, b.TitleIDHex()))
	if err := handleAPIError(resp, err, "upload save"); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) History(ctx context.Context, titleID string) ([]HistoryEntry, error) {
	var history historyResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetSuccessResult(&history).
		Get(fmt.Sprintf("%s/%s/history", v1Saves, titleID))
	if err := handleAPIError(resp, err, "list history"); err != nil {
		return nil, err
	}
	return history.Versions, nil
}

// DownloadHistory fetches one archived snapshot as a bundle.
func (c *Client) DownloadHistory(ctx context.Context, titleID, tag string) (*bundle.Bundle, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("%s/%s/history/%s", v1Saves, titleID, tag))
	if err := handleAPIError(resp, err, "download history version"); err != nil {
		return nil, err
	}

	data, err := resp.ToBytes()
	if err != nil {
		return nil, fmt.Errorf("sdk: download history version: %w", err)
	}
	return bundle.Decode(data)
}

// Plan submits per-title state and returns the server's sync plan.
func (c *Client) Plan(ctx context.Context, titles []reconcile.TitleState, consoleID string) (*reconcile.Plan, error) {
	var plan reconcile.Plan
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(&syncRequest{Titles: titles, ConsoleID: consoleID}).
		SetSuccessResult(&plan).
		Post(v1Sync)
	if err := handleAPIError(resp, err, "sync plan"); err != nil {
		return nil, err
	}
	return &plan, nil
}
