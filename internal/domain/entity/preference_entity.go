package entity

// Recently is one play of a station. EndTime 0 means still open.
type Recently struct {
	ID          int64  `json:"id"`
	UserID      int64  `json:"-"`
	StationUUID string `json:"stationuuid" binding:"required"`
	StartTime   int64  `json:"start_time" binding:"required"`
	EndTime     int64  `json:"end_time"`
}

// FavGroup is a named favorites group. At most one per user has IsDef set.
type FavGroup struct {
	ID         int64  `json:"id"`
	UserID     int64  `json:"-"`
	CreateTime int64  `json:"create_time"`
	Name       string `json:"name" binding:"required"`
	Desc       string `json:"desc"`
	IsDef      bool   `json:"is_def"`
}

// StationGroup is a favorite addressed by group name. An empty GroupName means the default group.
type StationGroup struct {
	GroupName   string `json:"group_name"`
	StationUUID string `json:"stationuuid" binding:"required"`
	CreateTime  int64  `json:"create_time"`
}

// SyncSet is the incremental preference snapshot returned to clients.
type SyncSet struct {
	Groups    []FavGroup     `json:"groups"`
	Recently  []Recently     `json:"recently"`
	Favorites []StationGroup `json:"favorites"`
}
