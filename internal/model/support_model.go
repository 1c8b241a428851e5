package model

import (
	"time"

	"gorm.io/datatypes"
)

type SupportTicket struct {
	Id         uint      `gorm:"primaryKey;autoIncrement"`
	Subject    string    `gorm:"type:varchar(512);not null;index:idx_support_tickets_subject_user,priority:1"`
	Message    string    `gorm:"type:text;not null"`
	Status     string    `gorm:"type:varchar(20);not null;default:'open'"`
	UserId     uint      `gorm:"not null;index:idx_support_tickets_subject_user,priority:2"`
	ThreadLink string    `gorm:"type:varchar(512)"`
	CreatedAt  time.Time `gorm:"autoCreateTime"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime"`
}

func (SupportTicket) TableName() string {
	return "support_tickets"
}

type ActivityLog struct {
	Id          uint           `gorm:"primaryKey;autoIncrement"`
	UserId      uint           `gorm:"not null;index"`
	Action      string         `gorm:"type:varchar(100);not null;index"`
	Description string         `gorm:"type:text"`
	Metadata    datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt   time.Time      `gorm:"autoCreateTime;index"`
}

func (ActivityLog) TableName() string {
	return "activity_logs"
}
