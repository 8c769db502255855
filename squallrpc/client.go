// Package squallrpc provides a client for the JSON-RPC 2.0 interface of
// the squall daemon.
package squallrpc

import (
	"encoding/base64"
	"io"
	"time"

	"github.com/cenkalti/backoff/v3"
	"github.com/powerman/rpc-codec/jsonrpc2"
	"github.com/squallbt/squall/internal/rpctypes"
)

// Client is a JSON-RPC 2.0 client over HTTP.
type Client struct {
	client *jsonrpc2.Client
	addr   string
}

// NewClient returns a new client for the daemon at addr.
// addr must be a full HTTP URL such as "http://127.0.0.1:20409".
func NewClient(addr string) *Client {
	return &Client{
		client: jsonrpc2.NewHTTPClient(addr),
		addr:   addr,
	}
}

// Addr returns the address of the daemon.
func (c *Client) Addr() string {
	return c.addr
}

// Close closes the underlying connection.
func (c *Client) Close() error {
	return c.client.Close()
}

// WaitReady blocks until the daemon answers a version call or the
// timeout passes. Useful right after spawning the daemon process.
func (c *Client) WaitReady(timeout time.Duration) error {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 100 * time.Millisecond
	bo.MaxElapsedTime = timeout

	ticker := backoff.NewTicker(bo)
	defer ticker.Stop()

	var err error
	for range ticker.C {
		_, err = c.ServerVersion()
		if err == nil {
			return nil
		}
	}
	return err
}

// ServerVersion returns the version of the connected daemon.
func (c *Client) ServerVersion() (string, error) {
	var reply string
	return reply, c.client.Call("Session.Version", nil, &reply)
}

func (c *Client) ListTorrents() ([]rpctypes.Torrent, error) {
	var reply rpctypes.ListTorrentsResponse
	return reply.Torrents, c.client.Call("Session.ListTorrents", rpctypes.ListTorrentsRequest{}, &reply)
}

// AddTorrent sends the contents of a torrent file to the daemon.
func (c *Client) AddTorrent(f io.Reader, opt rpctypes.AddTorrentOptions) (*rpctypes.Torrent, error) {
	b, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	args := rpctypes.AddTorrentRequest{
		Torrent:           base64.StdEncoding.EncodeToString(b),
		AddTorrentOptions: opt,
	}
	var reply rpctypes.AddTorrentResponse
	err = c.client.Call("Session.AddTorrent", args, &reply)
	return &reply.Torrent, err
}

func (c *Client) AddMagnet(link string, opt rpctypes.AddTorrentOptions) (*rpctypes.Torrent, error) {
	args := rpctypes.AddMagnetRequest{
		Magnet:            link,
		AddTorrentOptions: opt,
	}
	var reply rpctypes.AddMagnetResponse
	err := c.client.Call("Session.AddMagnet", args, &reply)
	return &reply.Torrent, err
}

// AddURI adds a torrent from a magnet link or HTTP URL.
func (c *Client) AddURI(uri string, opt rpctypes.AddTorrentOptions) (*rpctypes.Torrent, error) {
	args := rpctypes.AddURIRequest{
		URI:               uri,
		AddTorrentOptions: opt,
	}
	var reply rpctypes.AddURIResponse
	err := c.client.Call("Session.AddURI", args, &reply)
	return &reply.Torrent, err
}

// RemoveTorrent removes the torrent. deleteOption is one of "keep",
// "partfile", "data".
func (c *Client) RemoveTorrent(infoHash, deleteOption string) error {
	args := rpctypes.RemoveTorrentRequest{InfoHash: infoHash, DeleteOption: deleteOption}
	var reply rpctypes.RemoveTorrentResponse
	return c.client.Call("Session.RemoveTorrent", args, &reply)
}

func (c *Client) GetTorrent(infoHash string) (*rpctypes.Torrent, error) {
	args := rpctypes.GetTorrentRequest{InfoHash: infoHash}
	var reply rpctypes.GetTorrentResponse
	err := c.client.Call("Session.GetTorrent", args, &reply)
	return &reply.Torrent, err
}

func (c *Client) GetSessionStats() (*rpctypes.SessionStats, error) {
	var reply rpctypes.GetSessionStatsResponse
	err := c.client.Call("Session.GetSessionStats", rpctypes.GetSessionStatsRequest{}, &reply)
	return &reply.Stats, err
}

func (c *Client) PauseTorrent(infoHash string) error {
	args := rpctypes.PauseTorrentRequest{InfoHash: infoHash}
	var reply rpctypes.PauseTorrentResponse
	return c.client.Call("Session.PauseTorrent", args, &reply)
}

func (c *Client) ResumeTorrent(infoHash string) error {
	args := rpctypes.ResumeTorrentRequest{InfoHash: infoHash}
	var reply rpctypes.ResumeTorrentResponse
	return c.client.Call("Session.ResumeTorrent", args, &reply)
}

// MoveStorage relocates the torrent's data. mode is "overwrite" or "skip".
func (c *Client) MoveStorage(infoHash, dest, mode string) error {
	args := rpctypes.MoveStorageRequest{InfoHash: infoHash, Dest: dest, Mode: mode}
	var reply rpctypes.MoveStorageResponse
	return c.client.Call("Session.MoveStorage", args, &reply)
}

// ReorderQueue moves the torrents in the download queue. op is one of
// "up", "down", "top", "bottom".
func (c *Client) ReorderQueue(op string, infoHashes []string) error {
	args := rpctypes.ReorderQueueRequest{Op: op, InfoHashes: infoHashes}
	var reply rpctypes.ReorderQueueResponse
	return c.client.Call("Session.ReorderQueue", args, &reply)
}

func (c *Client) DownloadMetadata(magnet string) error {
	args := rpctypes.DownloadMetadataRequest{Magnet: magnet}
	var reply rpctypes.DownloadMetadataResponse
	return c.client.Call("Session.DownloadMetadata", args, &reply)
}

func (c *Client) CancelMetadataDownload(infoHash string) error {
	args := rpctypes.CancelMetadataDownloadRequest{InfoHash: infoHash}
	var reply rpctypes.CancelMetadataDownloadResponse
	return c.client.Call("Session.CancelMetadataDownload", args, &reply)
}

func (c *Client) SetTorrentShareLimits(infoHash string, ratio float64, seedingTimeMinutes int64) error {
	args := rpctypes.SetTorrentShareLimitsRequest{
		InfoHash:           infoHash,
		RatioLimit:         ratio,
		SeedingTimeMinutes: seedingTimeMinutes,
	}
	var reply rpctypes.SetTorrentShareLimitsResponse
	return c.client.Call("Session.SetTorrentShareLimits", args, &reply)
}

func (c *Client) SetTorrentCategory(infoHash, category string) error {
	args := rpctypes.SetTorrentCategoryRequest{InfoHash: infoHash, Category: category}
	var reply rpctypes.SetTorrentCategoryResponse
	return c.client.Call("Session.SetTorrentCategory", args, &reply)
}

func (c *Client) AddTorrentTags(infoHash string, tags []string) error {
	args := rpctypes.AddTorrentTagsRequest{InfoHash: infoHash, Tags: tags}
	var reply rpctypes.AddTorrentTagsResponse
	return c.client.Call("Session.AddTorrentTags", args, &reply)
}

func (c *Client) RemoveTorrentTags(infoHash string, tags []string) error {
	args := rpctypes.RemoveTorrentTagsRequest{InfoHash: infoHash, Tags: tags}
	var reply rpctypes.RemoveTorrentTagsResponse
	return c.client.Call("Session.RemoveTorrentTags", args, &reply)
}

func (c *Client) AddCategory(name, savePath string) error {
	args := rpctypes.AddCategoryRequest{Name: name, SavePath: savePath}
	var reply rpctypes.AddCategoryResponse
	return c.client.Call("Session.AddCategory", args, &reply)
}

func (c *Client) EditCategory(name, savePath string) error {
	args := rpctypes.EditCategoryRequest{Name: name, SavePath: savePath}
	var reply rpctypes.EditCategoryResponse
	return c.client.Call("Session.EditCategory", args, &reply)
}

func (c *Client) RemoveCategory(name string) error {
	args := rpctypes.RemoveCategoryRequest{Name: name}
	var reply rpctypes.RemoveCategoryResponse
	return c.client.Call("Session.RemoveCategory", args, &reply)
}

func (c *Client) GetCategories() (map[string]string, error) {
	var reply rpctypes.GetCategoriesResponse
	return reply.Categories, c.client.Call("Session.GetCategories", rpctypes.GetCategoriesRequest{}, &reply)
}

func (c *Client) AddTag(tag string) error {
	args := rpctypes.AddTagRequest{Tag: tag}
	var reply rpctypes.AddTagResponse
	return c.client.Call("Session.AddTag", args, &reply)
}

func (c *Client) RemoveTag(tag string) error {
	args := rpctypes.RemoveTagRequest{Tag: tag}
	var reply rpctypes.RemoveTagResponse
	return c.client.Call("Session.RemoveTag", args, &reply)
}

func (c *Client) GetTags() ([]string, error) {
	var reply rpctypes.GetTagsResponse
	return reply.Tags, c.client.Call("Session.GetTags", rpctypes.GetTagsRequest{}, &reply)
}

func (c *Client) ApplyConfig(patch rpctypes.ConfigPatch) error {
	args := rpctypes.ApplyConfigRequest{Patch: patch}
	var reply rpctypes.ApplyConfigResponse
	return c.client.Call("Session.ApplyConfig", args, &reply)
}

func (c *Client) GetConfig() (*rpctypes.Config, error) {
	var reply rpctypes.GetConfigResponse
	err := c.client.Call("Session.GetConfig", rpctypes.GetConfigRequest{}, &reply)
	return &reply.Config, err
}

func (c *Client) BanIP(ip string) error {
	args := rpctypes.BanIPRequest{IP: ip}
	var reply rpctypes.BanIPResponse
	return c.client.Call("Session.BanIP", args, &reply)
}

func (c *Client) GetBannedIPs() ([]string, error) {
	var reply rpctypes.GetBannedIPsResponse
	return reply.IPs, c.client.Call("Session.GetBannedIPs", rpctypes.GetBannedIPsRequest{}, &reply)
}
