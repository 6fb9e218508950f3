package entity

import "time"

// Vendor 供应商/分包商
type Vendor struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	Code      string    `json:"code" gorm:"size:32;uniqueIndex;not null"`
	Name      string    `json:"name" gorm:"size:200;not null"`
	Trade     string    `json:"trade" gorm:"size:50"`                 // 专业分包类别：concrete/electrical/plumbing...
	Status    string    `json:"status" gorm:"size:20;default:active"` // active/inactive/disbarred
	Email     string    `json:"email" gorm:"size:100"`
	Phone     string    `json:"phone" gorm:"size:30"`
	Address   string    `json:"address" gorm:"size:500"`
	CreatedBy string    `json:"created_by" gorm:"size:32"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Notes     string    `json:"notes" gorm:"type:text"`

	Contacts []VendorContact `json:"contacts,omitempty" gorm:"foreignKey:VendorID"`
}

func (Vendor) TableName() string {
	return "pm_vendors"
}

// 供应商状态。disbarred的供应商在最低责任投标人筛选中默认排除。
const (
	VendorStatusActive    = "active"
	VendorStatusInactive  = "inactive"
	VendorStatusDisbarred = "disbarred"
)

// VendorContact 供应商联系人（门户访问账号关联在外部身份系统）
type VendorContact struct {
	ID        string    `json:"id" gorm:"primaryKey;size:32"`
	VendorID  string    `json:"vendor_id" gorm:"size:32;not null;index"`
	Name      string    `json:"name" gorm:"size:100;not null"`
	Title     string    `json:"title" gorm:"size:100"`
	Email     string    `json:"email" gorm:"size:100"`
	Phone     string    `json:"phone" gorm:"size:30"`
	IsPrimary bool      `json:"is_primary" gorm:"default:false"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (VendorContact) TableName() string {
	return "pm_vendor_contacts"
}
