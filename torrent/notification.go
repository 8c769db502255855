package torrent

// NotificationType tells what happened.
type NotificationType string

// Notification types.
const (
	NotifyTorrentAdded         NotificationType = "torrent_added"
	NotifyTorrentAddFailed     NotificationType = "torrent_add_failed"
	NotifyTorrentFinished      NotificationType = "torrent_finished"
	NotifyTorrentRemoved       NotificationType = "torrent_removed"
	NotifyMetadataDownloaded   NotificationType = "metadata_downloaded"
	NotifyStorageMoved         NotificationType = "storage_moved"
	NotifyStorageMoveFailed    NotificationType = "storage_move_failed"
	NotifyResumeDataSaveFailed NotificationType = "resume_data_save_failed"
	NotifySessionError         NotificationType = "session_error"
)

// Notification is an asynchronous message about a state change in the
// session. Read them from Session.Notifications.
type Notification struct {
	Type     NotificationType
	InfoHash InfoHash
	Name     string
	// Path is set for storage move notifications.
	Path string
	// Error is set when Type reports a failure.
	Error string
	// Metadata holds the bencoded info dictionary for
	// NotifyMetadataDownloaded.
	Metadata []byte
	// Restored marks torrents loaded from the store at startup.
	Restored bool
	// Duplicate marks an add that merged into an existing torrent.
	Duplicate bool
}
