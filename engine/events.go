package engine

// Event is a notification from the engine.
// The concrete types below are the complete set.
type Event interface {
	isEvent()
}

// TorrentAddedEvent reports a successful AsyncAddTorrent.
type TorrentAddedEvent struct {
	Handle   Handle
	InfoHash InfoHash
}

// TorrentAddFailedEvent reports a failed AsyncAddTorrent.
type TorrentAddFailedEvent struct {
	InfoHash InfoHash
	Err      error
}

// MetadataReceivedEvent reports that the info dictionary of a magnet
// torrent arrived from peers. Info holds the bencoded dictionary.
type MetadataReceivedEvent struct {
	Handle   Handle
	InfoHash InfoHash
	Info     []byte
}

// TorrentFinishedEvent reports that all wanted data is downloaded.
type TorrentFinishedEvent struct {
	InfoHash InfoHash
}

// TorrentPausedEvent reports that the torrent stopped transferring.
type TorrentPausedEvent struct {
	InfoHash InfoHash
}

// TorrentResumedEvent reports that the torrent started transferring again.
type TorrentResumedEvent struct {
	InfoHash InfoHash
}

// StorageMovedEvent reports a completed MoveStorage. Path is the new
// save path of the torrent.
type StorageMovedEvent struct {
	InfoHash InfoHash
	Path     string
}

// StorageMoveFailedEvent reports a failed MoveStorage.
type StorageMoveFailedEvent struct {
	InfoHash InfoHash
	Path     string
	Err      error
}

// TorrentRemovedEvent confirms a RemoveTorrent.
type TorrentRemovedEvent struct {
	InfoHash InfoHash
}

// FilesDeletedEvent confirms that the torrent data is deleted from disk.
type FilesDeletedEvent struct {
	InfoHash InfoHash
}

// FileDeleteFailedEvent reports that deleting torrent data failed.
type FileDeleteFailedEvent struct {
	InfoHash InfoHash
	Err      error
}

// ResumeDataEvent answers RequestResumeData. Data is opaque to the
// session and handed back on the next add as AddRequest.ResumeData.
type ResumeDataEvent struct {
	InfoHash InfoHash
	Data     []byte
}

// ResumeDataFailedEvent reports that the engine cannot produce resume
// data for the torrent.
type ResumeDataFailedEvent struct {
	InfoHash InfoHash
	Err      error
}

// StatusUpdateEvent answers RequestStatusUpdates.
type StatusUpdateEvent struct {
	Statuses []TorrentStatus
}

// SessionStatsEvent answers RequestSessionStats.
type SessionStatsEvent struct {
	Stats StatsSnapshot
}

// EventsDroppedEvent reports that the engine queue overflowed and
// Count events were lost. The session resyncs state after seeing it.
type EventsDroppedEvent struct {
	Count int
}

// ListenFailedEvent reports that a listen address cannot be opened.
type ListenFailedEvent struct {
	Addr string
	Err  error
}

// StatsSnapshot holds session-wide transfer counters.
// Byte counters are cumulative since engine start.
type StatsSnapshot struct {
	TotalDownload  int64
	TotalUpload    int64
	PeersConnected int
}

func (TorrentAddedEvent) isEvent()      {}
func (TorrentAddFailedEvent) isEvent()  {}
func (MetadataReceivedEvent) isEvent()  {}
func (TorrentFinishedEvent) isEvent()   {}
func (TorrentPausedEvent) isEvent()     {}
func (TorrentResumedEvent) isEvent()    {}
func (StorageMovedEvent) isEvent()      {}
func (StorageMoveFailedEvent) isEvent() {}
func (TorrentRemovedEvent) isEvent()    {}
func (FilesDeletedEvent) isEvent()      {}
func (FileDeleteFailedEvent) isEvent()  {}
func (ResumeDataEvent) isEvent()        {}
func (ResumeDataFailedEvent) isEvent()  {}
func (StatusUpdateEvent) isEvent()      {}
func (SessionStatsEvent) isEvent()      {}
func (EventsDroppedEvent) isEvent()     {}
func (ListenFailedEvent) isEvent()      {}
