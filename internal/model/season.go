package model

import (
	"time"

	"gorm.io/datatypes"
)

// SeasonEvent 状态
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Season 赛季，year 全局唯一
type Season struct {
	ID          uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Year        int       `gorm:"column:year;uniqueIndex:uq_season_year;not null" json:"year"`
	Description string    `gorm:"column:description;type:varchar(200)" json:"description"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// Event 可跨赛季复用的赛事定义，名称大小写不敏感唯一（由服务层保证）
type Event struct {
	ID          uint64 `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name        string `gorm:"column:name;type:varchar(100);not null;index" json:"name"`
	Description string `gorm:"column:description;type:varchar(200)" json:"description"`
	EventType   string `gorm:"column:event_type;type:varchar(20)" json:"event_type"` // 如 Walk / Run
}

// SeasonEvent 某赛季中的一次赛事
type SeasonEvent struct {
	ID        uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SeasonID  uint64          `gorm:"column:season_id;type:bigint;not null;uniqueIndex:uq_season_event" json:"season_id"`
	EventID   uint64          `gorm:"column:event_id;type:bigint;not null;uniqueIndex:uq_season_event" json:"event_id"`
	Status    string          `gorm:"column:status;type:varchar(16);not null;default:active;index" json:"status"`
	StartDate *datatypes.Date `gorm:"column:start_date" json:"start_date"`
	EndDate   *datatypes.Date `gorm:"column:end_date" json:"end_date"`
}

// Stage 多日赛事的分段
type Stage struct {
	ID            uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	SeasonEventID uint64          `gorm:"column:season_event_id;type:bigint;not null;uniqueIndex:uq_stage_number" json:"season_event_id"`
	StageNumber   *int            `gorm:"column:stage_number;uniqueIndex:uq_stage_number" json:"stage_number"`
	Distance      *string         `gorm:"column:distance;type:varchar(20)" json:"distance"`
	Location      *string         `gorm:"column:location;type:varchar(100)" json:"location"`
	StageDate     *datatypes.Date `gorm:"column:stage_date" json:"stage_date"`
}

// Number stage_number 为空时按 0 排序
func (s *Stage) Number() int {
	if s.StageNumber == nil {
		return 0
	}
	return *s.StageNumber
}

func (Season) TableName() string      { return "seasons" }
func (Event) TableName() string       { return "events" }
func (SeasonEvent) TableName() string { return "season_events" }
func (Stage) TableName() string       { return "stages" }
