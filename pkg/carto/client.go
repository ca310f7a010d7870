// Package carto reads the route and metadata tables from the Carto SQL API
// or from local GeoJSON exports of the same tables.
package carto

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"

	"passages/pkg/model"
	"passages/pkg/request"
)

const defaultEndpoint = "https://%s.carto.com/api/v2/sql"

// Client queries one Carto account.
type Client struct {
	rc       *request.Client
	account  string
	endpoint string
}

// NewClient creates a client for the given account.
func NewClient(rc *request.Client, account string) *Client {
	return &Client{
		rc:       rc,
		account:  account,
		endpoint: fmt.Sprintf(defaultEndpoint, account),
	}
}

// WithEndpoint overrides the SQL API endpoint, e.g. for a self-hosted instance.
func (c *Client) WithEndpoint(endpoint string) *Client {
	c.endpoint = endpoint
	return c
}

// TableURL returns the GeoJSON query URL selecting every row of table.
func (c *Client) TableURL(table string) string {
	q := url.Values{}
	q.Set("format", "GeoJSON")
	q.Set("q", "SELECT * FROM "+table)
	return c.endpoint + "?" + q.Encode()
}

// FetchTable returns the raw GeoJSON of a table. Responses are cached per
// account and table.
func (c *Client) FetchTable(ctx context.Context, table string) ([]byte, error) {
	if table == "" {
		return nil, fmt.Errorf("carto: table name is empty")
	}
	key := fmt.Sprintf("carto:%s:%s", c.account, table)
	body, err := c.rc.Get(ctx, c.TableURL(table), key)
	if err != nil {
		return nil, fmt.Errorf("carto: fetch %s: %w", table, err)
	}
	return body, nil
}

// Source reads both tables from one Carto account.
type Source struct {
	client        *Client
	routesTable   string
	metadataTable string
}

// NewSource creates a Carto-backed record source.
func NewSource(c *Client, routesTable, metadataTable string) *Source {
	return &Source{client: c, routesTable: routesTable, metadataTable: metadataTable}
}

// Name identifies the source in ingest runs.
func (s *Source) Name() string {
	return "carto:" + s.client.account
}

// RoutesTable returns the configured routes table name.
func (s *Source) RoutesTable() string { return s.routesTable }

// MetadataTable returns the configured metadata table name.
func (s *Source) MetadataTable() string { return s.metadataTable }

// Routes fetches and decodes the routes table.
func (s *Source) Routes(ctx context.Context) ([]model.RouteRecord, error) {
	data, err := s.client.FetchTable(ctx, s.routesTable)
	if err != nil {
		return nil, err
	}
	recs, dropped, err := DecodeRoutes(data)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		slog.Debug("Carto: route rows without geometry or narrative", "table", s.routesTable, "dropped", dropped)
	}
	if len(recs) == 0 {
		s.client.rc.Tracker().TrackAPIZero("carto")
	}
	return recs, nil
}

// Metadata fetches and decodes the metadata table.
func (s *Source) Metadata(ctx context.Context) ([]model.Metadata, error) {
	data, err := s.client.FetchTable(ctx, s.metadataTable)
	if err != nil {
		return nil, err
	}
	meta, dropped, err := DecodeMetadata(data)
	if err != nil {
		return nil, err
	}
	if dropped > 0 {
		slog.Debug("Carto: metadata rows without narrative_id dropped", "table", s.metadataTable, "dropped", dropped)
	}
	if len(meta) == 0 {
		s.client.rc.Tracker().TrackAPIZero("carto")
	}
	return meta, nil
}

// FileSource reads GeoJSON exports of both tables from disk.
type FileSource struct {
	RoutesPath   string
	MetadataPath string
}

// Name identifies the source in ingest runs.
func (s *FileSource) Name() string {
	return "file:" + s.RoutesPath
}

// RoutesTable returns the routes file path.
func (s *FileSource) RoutesTable() string { return s.RoutesPath }

// MetadataTable returns the metadata file path.
func (s *FileSource) MetadataTable() string { return s.MetadataPath }

// Routes reads and decodes the routes file.
func (s *FileSource) Routes(ctx context.Context) ([]model.RouteRecord, error) {
	data, err := os.ReadFile(s.RoutesPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes %s: %w", s.RoutesPath, err)
	}
	recs, _, err := DecodeRoutes(data)
	return recs, err
}

// Metadata reads and decodes the metadata file. No path means no metadata.
func (s *FileSource) Metadata(ctx context.Context) ([]model.Metadata, error) {
	if s.MetadataPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.MetadataPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata %s: %w", s.MetadataPath, err)
	}
	meta, _, err := DecodeMetadata(data)
	return meta, err
}
