package models

import (
	"time"
)

const (
	SourceText  = "text"
	SourceVoice = "voice"
)

type InboundItem struct {
	ID             int64     `db:"id" json:"id"`
	UserID         int64     `db:"user_id" json:"user_id"`
	SourceType     string    `db:"source_type" json:"source_type"`
	RawText        string    `db:"raw_text" json:"raw_text"`
	Classification string    `db:"classification" json:"classification"`
	Status         string    `db:"status" json:"status"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

type BotReply struct {
	ID            int64     `db:"id" json:"id"`
	InboundItemID int64     `db:"inbound_item_id" json:"inbound_item_id"`
	ReplyText     string    `db:"reply_text" json:"reply_text"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

type HistoryItem struct {
	Role      string    `db:"role" json:"role"`
	Content   string    `db:"content" json:"content"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
