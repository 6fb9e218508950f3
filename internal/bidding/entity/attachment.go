package entity

import "time"

// BidAttachment 投标附件（报价单扫描件、资质文件等），文件本体存对象存储
type BidAttachment struct {
	ID         string    `json:"id" gorm:"primaryKey;size:32"`
	BidID      string    `json:"bid_id" gorm:"size:32;not null;index"`
	FileName   string    `json:"file_name" gorm:"size:255;not null"`
	ObjectPath string    `json:"object_path" gorm:"size:500;not null"`
	FileSize   int64     `json:"file_size"`
	MimeType   string    `json:"mime_type" gorm:"size:100"`
	UploadedBy string    `json:"uploaded_by" gorm:"size:32"`
	CreatedAt  time.Time `json:"created_at"`
}

func (BidAttachment) TableName() string {
	return "bid_attachments"
}
