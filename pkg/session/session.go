// Package session talks to a Transmission-compatible RPC endpoint. It
// supplies flat file snapshots for the tree and persists selection edits
// made against it. The tree itself never sees the wire format.
package session

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/RoaringBitmap/roaring"
	"github.com/google/uuid"
	"github.com/ohler55/ojg/jp"
	"github.com/ohler55/ojg/oj"

	"seedpick/pkg/filetree"
	"seedpick/pkg/logging"
)

// sessionHeader carries the CSRF token Transmission hands out via 409.
const sessionHeader = "X-Transmission-Session-Id"

// ErrRPCFailed is returned when the endpoint answers with a non-success
// result string.
var ErrRPCFailed = errors.New("rpc request failed")

// ErrTorrentNotFound is returned when the requested torrent id is unknown
// to the endpoint.
var ErrTorrentNotFound = errors.New("torrent not found")

// Options configures a Client.
type Options struct {
	// URL is the full RPC endpoint, e.g. http://host:9091/transmission/rpc.
	URL string

	// Username and Password enable HTTP basic auth when non-empty.
	Username string
	Password string

	// Timeout bounds each RPC round trip. Zero means 10 seconds.
	Timeout time.Duration
}

// Client is a Transmission RPC client scoped to file-selection concerns.
// It is not safe for concurrent use; the TUI event loop serializes calls.
type Client struct {
	url      string
	username string
	password string
	http     *http.Client
	log      *logging.Logger

	// CSRF session id, learned from the first 409 response.
	sessionID string

	// Indices edited locally but not yet confirmed by an authoritative
	// snapshot. Routine polls must leave these fields alone.
	pendingWanted   *roaring.Bitmap
	pendingPriority *roaring.Bitmap
}

// New creates a client for the given endpoint.
func New(opts Options) *Client {
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		url:             opts.URL,
		username:        opts.Username,
		password:        opts.Password,
		http:            &http.Client{Timeout: timeout},
		log:             logging.Get("session"),
		pendingWanted:   roaring.New(),
		pendingPriority: roaring.New(),
	}
}

// TorrentFiles is one torrent's flat file snapshot.
type TorrentFiles struct {
	Name    string
	Entries []filetree.Entry
}

// HasPendingEdits reports whether any local edit still awaits confirmation
// from an authoritative snapshot.
func (c *Client) HasPendingEdits() bool {
	return !c.pendingWanted.IsEmpty() || !c.pendingPriority.IsEmpty()
}

// MarkAuthoritative records that the caller applied a context-changed
// snapshot, which confirms (or overrules) all pending edits.
func (c *Client) MarkAuthoritative() {
	c.pendingWanted.Clear()
	c.pendingPriority.Clear()
}

// FetchFiles retrieves the torrent's file list and per-file stats.
func (c *Client) FetchFiles(ctx context.Context, torrentID int) (*TorrentFiles, error) {
	resp, err := c.call(ctx, "torrent-get", map[string]any{
		"ids":    []any{torrentID},
		"fields": []any{"name", "files", "fileStats"},
	})
	if err != nil {
		return nil, err
	}

	torrents := jp.MustParseString("torrents[0]").Get(resp)
	if len(torrents) == 0 {
		return nil, fmt.Errorf("%w: id %d", ErrTorrentNotFound, torrentID)
	}

	name, _ := jp.MustParseString("torrents[0].name").First(resp).(string)
	files := jp.MustParseString("torrents[0].files[*]").Get(resp)
	stats := jp.MustParseString("torrents[0].fileStats[*]").Get(resp)

	entries := make([]filetree.Entry, 0, len(files))
	for i, f := range files {
		fm, ok := f.(map[string]any)
		if !ok {
			continue
		}
		e := filetree.Entry{
			FileIndex: i,
			Path:      asString(fm["name"]),
			TotalSize: asUint(fm["length"]),
			HaveSize:  asUint(fm["bytesCompleted"]),
			Wanted:    true,
		}
		if i < len(stats) {
			if sm, ok := stats[i].(map[string]any); ok {
				if w, ok := sm["wanted"].(bool); ok {
					e.Wanted = w
				}
				e.Priority = filetree.Priority(asInt(sm["priority"]))
				e.HaveSize = asUint(sm["bytesCompleted"])
			}
		}
		entries = append(entries, e)
	}

	c.log.Debug("fetched file snapshot", "torrent", torrentID, "files", len(entries))
	return &TorrentFiles{Name: name, Entries: entries}, nil
}

// SetWanted persists a wanted edit for the given file indices. The tree
// has already applied the edit locally; the indices stay pending until an
// authoritative snapshot confirms them.
func (c *Client) SetWanted(ctx context.Context, torrentID int, indices *roaring.Bitmap, wanted bool) error {
	if indices.IsEmpty() {
		return nil
	}
	key := "files-unwanted"
	if wanted {
		key = "files-wanted"
	}
	op := uuid.NewString()
	c.log.Info("persisting selection change",
		"op", op, "torrent", torrentID, "wanted", wanted, "files", indices.GetCardinality())

	_, err := c.call(ctx, "torrent-set", map[string]any{
		"ids": []any{torrentID},
		key:   indexList(indices),
	})
	if err != nil {
		c.log.Error("selection change failed", "op", op, "error", err)
		return err
	}
	c.pendingWanted.Or(indices)
	return nil
}

// SetPriority persists a priority edit for the given file indices.
func (c *Client) SetPriority(ctx context.Context, torrentID int, indices *roaring.Bitmap, p filetree.Priority) error {
	if indices.IsEmpty() {
		return nil
	}
	var key string
	switch p {
	case filetree.PriorityLow:
		key = "priority-low"
	case filetree.PriorityHigh:
		key = "priority-high"
	default:
		key = "priority-normal"
	}
	op := uuid.NewString()
	c.log.Info("persisting priority change",
		"op", op, "torrent", torrentID, "priority", p.String(), "files", indices.GetCardinality())

	_, err := c.call(ctx, "torrent-set", map[string]any{
		"ids": []any{torrentID},
		key:   indexList(indices),
	})
	if err != nil {
		c.log.Error("priority change failed", "op", op, "error", err)
		return err
	}
	c.pendingPriority.Or(indices)
	return nil
}

// call performs one RPC round trip, redoing it once when the endpoint
// demands a fresh session id. It returns the parsed arguments object.
func (c *Client) call(ctx context.Context, method string, args map[string]any) (any, error) {
	body, err := oj.Marshal(map[string]any{
		"method":    method,
		"arguments": args,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", method, err)
	}

	resp, err := c.post(ctx, body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusConflict {
		c.sessionID = resp.Header.Get(sessionHeader)
		_ = resp.Body.Close()
		if resp, err = c.post(ctx, body); err != nil {
			return nil, err
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: http %d", ErrRPCFailed, method, resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading %s response: %w", method, err)
	}
	parsed, err := oj.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parsing %s response: %w", method, err)
	}

	if result, _ := jp.MustParseString("result").First(parsed).(string); result != "success" {
		return nil, fmt.Errorf("%w: %s: %q", ErrRPCFailed, method, result)
	}
	return jp.MustParseString("arguments").First(parsed), nil
}

// post sends one HTTP request with auth and session headers attached.
func (c *Client) post(ctx context.Context, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.sessionID != "" {
		req.Header.Set(sessionHeader, c.sessionID)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rpc request: %w", err)
	}
	return resp, nil
}

// indexList converts a bitmap to the JSON array form torrent-set expects.
func indexList(indices *roaring.Bitmap) []any {
	out := make([]any, 0, indices.GetCardinality())
	it := indices.Iterator()
	for it.HasNext() {
		out = append(out, int64(it.Next()))
	}
	return out
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case float64:
		return int64(n)
	case int:
		return int64(n)
	default:
		return 0
	}
}

func asUint(v any) uint64 {
	n := asInt(v)
	if n < 0 {
		return 0
	}
	return uint64(n)
}
