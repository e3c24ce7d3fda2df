package queue

// Task names dispatched through the queue. These are the contract with the
// worker layer; renaming one orphans in-flight messages.
const (
	TaskTriggerCrontabScans        = "trigger_crontab_scans"
	TaskCheckMissedScans           = "check_missed_channel_scans_since_last_ran"
	TaskScanChannelVideos          = "scan_channel_for_new_videos"
	TaskScanChannelShorts          = "scan_channel_for_new_shorts"
	TaskScanChannelLivestreams     = "scan_channel_for_new_livestreams"
	TaskSyncPlaylistData           = "sync_playlist_data"
	TaskUpdateChannelBanners       = "update_channel_banners"
	TaskRenameVideoFiles           = "rename_video_files"
	TaskMirrorLivePlaylist         = "mirror_live_playlist"
	TaskTriggerMirrorLivePlaylists = "trigger_mirror_live_playlists"
	TaskSubscribeToChannel         = "subscribe_to_channel"
)

// Common payload keys.
const (
	ArgChannelID     = "channel_id"
	ArgPlaylistID    = "playlist_id"
	ArgProviderID    = "provider_object_id"
	ArgScanHistoryID = "scan_history_id"
	ArgLimit         = "limit"
)
