package model

import (
	"time"

	"gorm.io/datatypes"
)

// Participant 参赛者，归属唯一机构
type Participant struct {
	ID            uint64          `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	FirstName     string          `gorm:"column:first_name;type:varchar(100);not null" json:"first_name"`
	LastName      string          `gorm:"column:last_name;type:varchar(100);not null" json:"last_name"`
	BirthDate     *datatypes.Date `gorm:"column:birth_date" json:"birth_date"`
	Sex           *string         `gorm:"column:sex;type:varchar(1)" json:"sex"`           // M / F
	Division      *string         `gorm:"column:division;type:varchar(20)" json:"division"` // 由性别+出生日期推导
	Contact       *string         `gorm:"column:contact;type:varchar(50)" json:"contact"`
	Email         *string         `gorm:"column:email;type:varchar(120)" json:"email"`
	InstitutionID uint64          `gorm:"column:institution_id;type:bigint;not null;index" json:"institution_id"`
	CreatedAt     time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// Registration 参赛者与某赛季赛事的报名关系
type Registration struct {
	ID               uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ParticipantID    uint64    `gorm:"column:participant_id;type:bigint;not null;uniqueIndex:uq_participant_season_event" json:"participant_id"`
	SeasonEventID    uint64    `gorm:"column:season_event_id;type:bigint;not null;uniqueIndex:uq_participant_season_event;index" json:"season_event_id"`
	RegistrationDate time.Time `gorm:"column:registration_date;autoCreateTime" json:"registration_date"`
	Division         *string   `gorm:"column:division;type:varchar(20)" json:"division"` // 可选覆盖
}

// Result 一次报名在某个分段的成绩
type Result struct {
	ID             uint64  `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	RegistrationID uint64  `gorm:"column:registration_id;type:bigint;not null;uniqueIndex:uq_result_registration_stage" json:"registration_id"`
	StageID        uint64  `gorm:"column:stage_id;type:bigint;not null;uniqueIndex:uq_result_registration_stage;index" json:"stage_id"`
	FinishTime     *string `gorm:"column:finish_time;type:varchar(20)" json:"finish_time"`
	Placement      *int    `gorm:"column:placement" json:"placement"`
	Points         *int    `gorm:"column:points" json:"points"`
}

func (Participant) TableName() string  { return "participants" }
func (Registration) TableName() string { return "registrations" }
func (Result) TableName() string       { return "results" }
