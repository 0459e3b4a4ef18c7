package model

import "time"

// 号码布分配状态
const (
	BibActive   = "active"
	BibLost     = "lost"
	BibReplaced = "replaced"
)

// BibNo 号码布编号，赛季内 bib_value 唯一
type BibNo struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BibValue      string    `gorm:"column:bib_value;type:varchar(50);not null;uniqueIndex:uq_bib_no_season" json:"bib_value"`
	SeasonID      uint64    `gorm:"column:season_id;type:bigint;not null;uniqueIndex:uq_bib_no_season;index:idx_bib_no_owner" json:"season_id"`
	InstitutionID *uint64   `gorm:"column:institution_id;type:bigint;index:idx_bib_no_owner" json:"institution_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// BibTag 计时芯片标签，赛季内 bib_value 唯一
type BibTag struct {
	ID            uint64    `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BibValue      string    `gorm:"column:bib_value;type:varchar(50);not null;uniqueIndex:uq_bib_tag_season" json:"bib_value"`
	SeasonID      uint64    `gorm:"column:season_id;type:bigint;not null;uniqueIndex:uq_bib_tag_season" json:"season_id"`
	InstitutionID *uint64   `gorm:"column:institution_id;type:bigint;index" json:"institution_id"`
	CreatedAt     time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

// BibNoAssignment 报名与号码布的绑定，每个报名同时最多一个 active
type BibNoAssignment struct {
	RegistrationID uint64    `gorm:"column:registration_id;primaryKey;autoIncrement:false" json:"registration_id"`
	BibNoID        uint64    `gorm:"column:bib_no_id;primaryKey;autoIncrement:false" json:"bib_no_id"`
	AssignDate     time.Time `gorm:"column:assign_date;autoCreateTime" json:"assign_date"`
	Status         string    `gorm:"column:status;type:varchar(20);not null;default:active" json:"status"`
}

// BibTagAssignment 报名与芯片标签的绑定
type BibTagAssignment struct {
	RegistrationID uint64    `gorm:"column:registration_id;primaryKey;autoIncrement:false" json:"registration_id"`
	BibTagID       uint64    `gorm:"column:bib_tag_id;primaryKey;autoIncrement:false" json:"bib_tag_id"`
	AssignDate     time.Time `gorm:"column:assign_date;autoCreateTime" json:"assign_date"`
	Status         string    `gorm:"column:status;type:varchar(20);not null;default:active" json:"status"`
}

func (BibNo) TableName() string            { return "bib_nos" }
func (BibTag) TableName() string           { return "bib_tags" }
func (BibNoAssignment) TableName() string  { return "bib_no_assignments" }
func (BibTagAssignment) TableName() string { return "bib_tag_assignments" }
