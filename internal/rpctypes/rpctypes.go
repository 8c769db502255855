// Package rpctypes contains the request and response types of the
// session RPC interface.
package rpctypes

type Torrent struct {
	InfoHash        string
	Name            string
	State           string
	SavePath        string
	Category        string
	Tags            []string
	Progress        float64
	QueuePos        int
	BytesDownloaded int64
	BytesUploaded   int64
	DownloadRate    int
	UploadRate      int
	Ratio           float64
	SeedingTime     int
	AddedAt         Time
	Private         bool
	Finished        bool
	Pending         bool
}

type SessionStats struct {
	Torrents          int
	PendingAdds       int
	MetadataDownloads int
	QueuedMoves       int
	BannedIPs         int

	Categories int
	Tags       int

	DownloadRate int
	UploadRate   int

	TotalDownload int64
	TotalUpload   int64

	PeersConnected int

	Uptime int
}

type AddTorrentOptions struct {
	Stopped          bool
	StopWhenReady    bool
	Forced           bool
	SavePath         string
	AutoManaged      bool
	SkipChecking     bool
	Sequential       bool
	Category         string
	Tags             []string
	ContentLayout    string
	RatioLimit       float64
	SeedingTimeLimit int64
}

type Config struct {
	DataDir         string
	DefaultSavePath string
	ListenAddrs     []string

	MaxActiveDownloads int
	MaxActiveUploads   int
	MaxActiveTorrents  int
	QueueingEnabled    bool

	DownloadRateLimit int
	UploadRateLimit   int

	ShareRatioLimit       float64
	ShareSeedingTimeLimit int64
	ShareLimitAction      string

	RecursiveDownload bool
	ContentLayout     string
}

type ConfigPatch struct {
	ListenAddrs        []string
	MaxActiveDownloads *int
	MaxActiveUploads   *int
	MaxActiveTorrents  *int
	QueueingEnabled    *bool
	DownloadRateLimit  *int
	UploadRateLimit    *int

	ShareRatioLimit       *float64
	ShareSeedingTimeLimit *int64
	ShareLimitAction      *string

	RecursiveDownload *bool
}

type ListTorrentsRequest struct {
}

type ListTorrentsResponse struct {
	Torrents []Torrent
}

type AddTorrentRequest struct {
	Torrent string
	AddTorrentOptions
}

type AddTorrentResponse struct {
	Torrent Torrent
}

type AddMagnetRequest struct {
	Magnet string
	AddTorrentOptions
}

type AddMagnetResponse struct {
	Torrent Torrent
}

type AddURIRequest struct {
	URI string
	AddTorrentOptions
}

type AddURIResponse struct {
	Torrent Torrent
}

type RemoveTorrentRequest struct {
	InfoHash string
	// DeleteOption is one of "keep", "partfile", "data".
	DeleteOption string
}

type RemoveTorrentResponse struct {
}

type GetTorrentRequest struct {
	InfoHash string
}

type GetTorrentResponse struct {
	Torrent Torrent
}

type GetSessionStatsRequest struct {
}

type GetSessionStatsResponse struct {
	Stats SessionStats
}

type PauseTorrentRequest struct {
	InfoHash string
}

type PauseTorrentResponse struct {
}

type ResumeTorrentRequest struct {
	InfoHash string
}

type ResumeTorrentResponse struct {
}

type MoveStorageRequest struct {
	InfoHash string
	Dest     string
	// Mode is "overwrite" or "skip".
	Mode string
}

type MoveStorageResponse struct {
}

type ReorderQueueRequest struct {
	// Op is one of "up", "down", "top", "bottom".
	Op         string
	InfoHashes []string
}

type ReorderQueueResponse struct {
}

type DownloadMetadataRequest struct {
	Magnet string
}

type DownloadMetadataResponse struct {
}

type CancelMetadataDownloadRequest struct {
	InfoHash string
}

type CancelMetadataDownloadResponse struct {
}

type SetTorrentShareLimitsRequest struct {
	InfoHash           string
	RatioLimit         float64
	SeedingTimeMinutes int64
}

type SetTorrentShareLimitsResponse struct {
}

type SetTorrentCategoryRequest struct {
	InfoHash string
	Category string
}

type SetTorrentCategoryResponse struct {
}

type AddTorrentTagsRequest struct {
	InfoHash string
	Tags     []string
}

type AddTorrentTagsResponse struct {
}

type RemoveTorrentTagsRequest struct {
	InfoHash string
	Tags     []string
}

type RemoveTorrentTagsResponse struct {
}

type AddCategoryRequest struct {
	Name     string
	SavePath string
}

type AddCategoryResponse struct {
}

type EditCategoryRequest struct {
	Name     string
	SavePath string
}

type EditCategoryResponse struct {
}

type RemoveCategoryRequest struct {
	Name string
}

type RemoveCategoryResponse struct {
}

type GetCategoriesRequest struct {
}

type GetCategoriesResponse struct {
	// Categories maps category name to its save path override.
	Categories map[string]string
}

type AddTagRequest struct {
	Tag string
}

type AddTagResponse struct {
}

type RemoveTagRequest struct {
	Tag string
}

type RemoveTagResponse struct {
}

type GetTagsRequest struct {
}

type GetTagsResponse struct {
	Tags []string
}

type ApplyConfigRequest struct {
	Patch ConfigPatch
}

type ApplyConfigResponse struct {
}

type GetConfigRequest struct {
}

type GetConfigResponse struct {
	Config Config
}

type BanIPRequest struct {
	IP string
}

type BanIPResponse struct {
}

type GetBannedIPsRequest struct {
}

type GetBannedIPsResponse struct {
	IPs []string
}
