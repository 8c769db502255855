package torrent

import (
	"encoding/base64"
	"errors"
	"strings"
	"time"

	"github.com/powerman/rpc-codec/jsonrpc2"
	"github.com/squallbt/squall/internal/rpctypes"
)

var errTorrentNotFound = jsonrpc2.NewError(1, "torrent not found")

type rpcHandler struct {
	session *Session
}

// rpcError maps InputErrors to a well-known JSON-RPC error code so
// clients can tell bad input apart from internal failures.
func rpcError(err error) error {
	var e *InputError
	if errors.As(err, &e) {
		return jsonrpc2.NewError(2, e.Error())
	}
	return err
}

func parseInfoHash(s string) (InfoHash, error) {
	ih, err := InfoHashFromHex(s)
	if err != nil {
		return InfoHash{}, jsonrpc2.NewError(2, "invalid info hash: "+s)
	}
	return ih, nil
}

func parseAddOptions(o rpctypes.AddTorrentOptions) *AddTorrentOptions {
	return &AddTorrentOptions{
		Stopped:          o.Stopped,
		StopWhenReady:    o.StopWhenReady,
		Forced:           o.Forced,
		SavePath:         o.SavePath,
		AutoManaged:      o.AutoManaged,
		SkipChecking:     o.SkipChecking,
		Sequential:       o.Sequential,
		Category:         o.Category,
		Tags:             o.Tags,
		ContentLayout:    o.ContentLayout,
		RatioLimit:       o.RatioLimit,
		SeedingTimeLimit: o.SeedingTimeLimit,
	}
}

func newTorrent(t *Torrent) rpctypes.Torrent {
	return newTorrentStats(t.Stats())
}

func newTorrentStats(s TorrentStats) rpctypes.Torrent {
	return rpctypes.Torrent{
		InfoHash:        s.InfoHash.String(),
		Name:            s.Name,
		State:           s.State,
		SavePath:        s.SavePath,
		Category:        s.Category,
		Tags:            s.Tags,
		Progress:        s.Progress,
		QueuePos:        s.QueuePos,
		BytesDownloaded: s.BytesDownloaded,
		BytesUploaded:   s.BytesUploaded,
		DownloadRate:    s.DownloadRate,
		UploadRate:      s.UploadRate,
		Ratio:           s.Ratio,
		SeedingTime:     int(s.SeedingTime / time.Second),
		AddedAt:         rpctypes.Time{Time: s.AddedAt},
		Private:         s.Private,
		Finished:        s.Finished,
		Pending:         s.Pending,
	}
}

func (h *rpcHandler) Version(args struct{}, reply *string) error {
	*reply = Version
	return nil
}

func (h *rpcHandler) ListTorrents(args *rpctypes.ListTorrentsRequest, reply *rpctypes.ListTorrentsResponse) error {
	torrents := h.session.ListTorrents()
	reply.Torrents = make([]rpctypes.Torrent, 0, len(torrents))
	for _, t := range torrents {
		reply.Torrents = append(reply.Torrents, newTorrent(t))
	}
	return nil
}

func (h *rpcHandler) AddTorrent(args *rpctypes.AddTorrentRequest, reply *rpctypes.AddTorrentResponse) error {
	r := base64.NewDecoder(base64.StdEncoding, strings.NewReader(args.Torrent))
	t, err := h.session.AddTorrent(r, parseAddOptions(args.AddTorrentOptions))
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newTorrent(t)
	return nil
}

func (h *rpcHandler) AddMagnet(args *rpctypes.AddMagnetRequest, reply *rpctypes.AddMagnetResponse) error {
	t, err := h.session.AddMagnet(args.Magnet, parseAddOptions(args.AddTorrentOptions))
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newTorrent(t)
	return nil
}

func (h *rpcHandler) AddURI(args *rpctypes.AddURIRequest, reply *rpctypes.AddURIResponse) error {
	t, err := h.session.AddURI(args.URI, parseAddOptions(args.AddTorrentOptions))
	if err != nil {
		return rpcError(err)
	}
	reply.Torrent = newTorrent(t)
	return nil
}

func (h *rpcHandler) RemoveTorrent(args *rpctypes.RemoveTorrentRequest, reply *rpctypes.RemoveTorrentResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	var opt DeleteOption
	switch args.DeleteOption {
	case "", "keep":
		opt = DeleteNothing
	case "partfile":
		opt = DeletePartfile
	case "data":
		opt = DeleteData
	default:
		return jsonrpc2.NewError(2, "invalid delete option: "+args.DeleteOption)
	}
	err = h.session.RemoveTorrent(ih, opt)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) GetTorrent(args *rpctypes.GetTorrentRequest, reply *rpctypes.GetTorrentResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	t := h.session.GetTorrent(ih)
	if t == nil {
		return errTorrentNotFound
	}
	reply.Torrent = newTorrent(t)
	return nil
}

func (h *rpcHandler) GetSessionStats(args *rpctypes.GetSessionStatsRequest, reply *rpctypes.GetSessionStatsResponse) error {
	s := h.session.Stats()
	reply.Stats = rpctypes.SessionStats{
		Torrents:          s.Torrents,
		PendingAdds:       s.PendingAdds,
		MetadataDownloads: s.MetadataDownloads,
		QueuedMoves:       s.QueuedMoves,
		BannedIPs:         s.BannedIPs,
		Categories:        s.Categories,
		Tags:              s.Tags,
		DownloadRate:      s.DownloadRate,
		UploadRate:        s.UploadRate,
		TotalDownload:     s.TotalDownload,
		TotalUpload:       s.TotalUpload,
		PeersConnected:    s.PeersConnected,
		Uptime:            s.Uptime,
	}
	return nil
}

func (h *rpcHandler) PauseTorrent(args *rpctypes.PauseTorrentRequest, reply *rpctypes.PauseTorrentResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	err = h.session.PauseTorrent(ih)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) ResumeTorrent(args *rpctypes.ResumeTorrentRequest, reply *rpctypes.ResumeTorrentResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	err = h.session.ResumeTorrent(ih)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) MoveStorage(args *rpctypes.MoveStorageRequest, reply *rpctypes.MoveStorageResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	var mode MoveMode
	switch args.Mode {
	case "", "overwrite":
		mode = MoveOverwrite
	case "skip":
		mode = MoveSkipExisting
	default:
		return jsonrpc2.NewError(2, "invalid move mode: "+args.Mode)
	}
	err = h.session.MoveStorage(ih, args.Dest, mode)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) ReorderQueue(args *rpctypes.ReorderQueueRequest, reply *rpctypes.ReorderQueueResponse) error {
	var op QueueReorderOp
	switch args.Op {
	case "up":
		op = QueueMoveUp
	case "down":
		op = QueueMoveDown
	case "top":
		op = QueueMoveTop
	case "bottom":
		op = QueueMoveBottom
	default:
		return jsonrpc2.NewError(2, "invalid queue op: "+args.Op)
	}
	ids := make([]InfoHash, 0, len(args.InfoHashes))
	for _, s := range args.InfoHashes {
		ih, err := parseInfoHash(s)
		if err != nil {
			return err
		}
		ids = append(ids, ih)
	}
	return rpcError(h.session.ReorderQueue(op, ids))
}

func (h *rpcHandler) DownloadMetadata(args *rpctypes.DownloadMetadataRequest, reply *rpctypes.DownloadMetadataResponse) error {
	return rpcError(h.session.DownloadMetadata(args.Magnet))
}

func (h *rpcHandler) CancelMetadataDownload(args *rpctypes.CancelMetadataDownloadRequest, reply *rpctypes.CancelMetadataDownloadResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	err = h.session.CancelMetadataDownload(ih)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) SetTorrentShareLimits(args *rpctypes.SetTorrentShareLimitsRequest, reply *rpctypes.SetTorrentShareLimitsResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	err = h.session.SetTorrentShareLimits(ih, args.RatioLimit, args.SeedingTimeMinutes)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) SetTorrentCategory(args *rpctypes.SetTorrentCategoryRequest, reply *rpctypes.SetTorrentCategoryResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	err = h.session.SetTorrentCategory(ih, args.Category)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) AddTorrentTags(args *rpctypes.AddTorrentTagsRequest, reply *rpctypes.AddTorrentTagsResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	err = h.session.AddTorrentTags(ih, args.Tags)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) RemoveTorrentTags(args *rpctypes.RemoveTorrentTagsRequest, reply *rpctypes.RemoveTorrentTagsResponse) error {
	ih, err := parseInfoHash(args.InfoHash)
	if err != nil {
		return err
	}
	err = h.session.RemoveTorrentTags(ih, args.Tags)
	if errors.Is(err, ErrTorrentNotFound) {
		return errTorrentNotFound
	}
	return rpcError(err)
}

func (h *rpcHandler) AddCategory(args *rpctypes.AddCategoryRequest, reply *rpctypes.AddCategoryResponse) error {
	return rpcError(h.session.AddCategory(args.Name, args.SavePath))
}

func (h *rpcHandler) EditCategory(args *rpctypes.EditCategoryRequest, reply *rpctypes.EditCategoryResponse) error {
	return rpcError(h.session.EditCategory(args.Name, args.SavePath))
}

func (h *rpcHandler) RemoveCategory(args *rpctypes.RemoveCategoryRequest, reply *rpctypes.RemoveCategoryResponse) error {
	return rpcError(h.session.RemoveCategory(args.Name))
}

func (h *rpcHandler) GetCategories(args *rpctypes.GetCategoriesRequest, reply *rpctypes.GetCategoriesResponse) error {
	reply.Categories = h.session.Categories()
	return nil
}

func (h *rpcHandler) AddTag(args *rpctypes.AddTagRequest, reply *rpctypes.AddTagResponse) error {
	return rpcError(h.session.AddTag(args.Tag))
}

func (h *rpcHandler) RemoveTag(args *rpctypes.RemoveTagRequest, reply *rpctypes.RemoveTagResponse) error {
	return rpcError(h.session.RemoveTag(args.Tag))
}

func (h *rpcHandler) GetTags(args *rpctypes.GetTagsRequest, reply *rpctypes.GetTagsResponse) error {
	reply.Tags = h.session.Tags()
	return nil
}

func (h *rpcHandler) ApplyConfig(args *rpctypes.ApplyConfigRequest, reply *rpctypes.ApplyConfigResponse) error {
	p := args.Patch
	return rpcError(h.session.ApplyConfig(ConfigPatch{
		ListenAddrs:           p.ListenAddrs,
		MaxActiveDownloads:    p.MaxActiveDownloads,
		MaxActiveUploads:      p.MaxActiveUploads,
		MaxActiveTorrents:     p.MaxActiveTorrents,
		QueueingEnabled:       p.QueueingEnabled,
		DownloadRateLimit:     p.DownloadRateLimit,
		UploadRateLimit:       p.UploadRateLimit,
		ShareRatioLimit:       p.ShareRatioLimit,
		ShareSeedingTimeLimit: p.ShareSeedingTimeLimit,
		ShareLimitAction:      p.ShareLimitAction,
		RecursiveDownload:     p.RecursiveDownload,
	}))
}

func (h *rpcHandler) GetConfig(args *rpctypes.GetConfigRequest, reply *rpctypes.GetConfigResponse) error {
	c := h.session.Config()
	reply.Config = rpctypes.Config{
		DataDir:               c.DataDir,
		DefaultSavePath:       c.DefaultSavePath,
		ListenAddrs:           c.ListenAddrs,
		MaxActiveDownloads:    c.MaxActiveDownloads,
		MaxActiveUploads:      c.MaxActiveUploads,
		MaxActiveTorrents:     c.MaxActiveTorrents,
		QueueingEnabled:       c.QueueingEnabled,
		DownloadRateLimit:     c.DownloadRateLimit,
		UploadRateLimit:       c.UploadRateLimit,
		ShareRatioLimit:       c.ShareRatioLimit,
		ShareSeedingTimeLimit: c.ShareSeedingTimeLimit,
		ShareLimitAction:      c.ShareLimitAction,
		RecursiveDownload:     c.RecursiveDownload,
		ContentLayout:         c.ContentLayout,
	}
	return nil
}

func (h *rpcHandler) BanIP(args *rpctypes.BanIPRequest, reply *rpctypes.BanIPResponse) error {
	return rpcError(h.session.BanIP(args.IP))
}

func (h *rpcHandler) GetBannedIPs(args *rpctypes.GetBannedIPsRequest, reply *rpctypes.GetBannedIPsResponse) error {
	reply.IPs = h.session.BannedIPs()
	return nil
}
