package models

import (
	"time"

	"gorm.io/gorm"
)

// ============================================================
// Roles
// ============================================================

const (
	RoleUser       = "USER"
	RoleSubAdmin   = "SUBADMIN"
	RoleSuperAdmin = "SUPERADMIN"
)

// IsValidRole reports whether role is one of the known roles
func IsValidRole(role string) bool {
	return role == RoleUser || role == RoleSubAdmin || role == RoleSuperAdmin
}

// ============================================================
// Accounts
// ============================================================

// User represents users table
type User struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	Username        string     `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Password        string     `gorm:"size:255;not null" json:"-"`
	Role            string     `gorm:"size:20;not null;default:'USER'" json:"role"`
	RemainingClaims uint       `gorm:"not null;default:0" json:"remaining_claims"`
	DailyQuota      uint       `gorm:"not null;default:0" json:"daily_quota"`
	LastResetDate   *time.Time `gorm:"type:date" json:"last_reset_date"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

// IsSuperAdmin reports whether the user holds the SUPERADMIN role
func (u *User) IsSuperAdmin() bool {
	return u.Role == RoleSuperAdmin
}

// IsAdmin reports whether the user may access the admin surface
func (u *User) IsAdmin() bool {
	return u.Role == RoleSubAdmin || u.Role == RoleSuperAdmin
}

// UserResponse DTO
type UserResponse struct {
	ID              uint       `json:"id"`
	Username        string     `json:"username"`
	Role            string     `json:"role"`
	RemainingClaims uint       `json:"remaining_claims"`
	DailyQuota      uint       `json:"daily_quota"`
	LastResetDate   *time.Time `json:"last_reset_date"`
	CreatedAt       time.Time  `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:              u.ID,
		Username:        u.Username,
		Role:            u.Role,
		RemainingClaims: u.RemainingClaims,
		DailyQuota:      u.DailyQuota,
		LastResetDate:   u.LastResetDate,
		CreatedAt:       u.CreatedAt,
	}
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"index;not null" json:"user_id"`
	TokenHash string     `gorm:"size:255;not null;index" json:"-"`
	ExpiresAt time.Time  `gorm:"not null" json:"expires_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt *time.Time `gorm:"index" json:"revoked_at"`
	User      User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// ============================================================
// Boss Codes
// ============================================================

// CodeLength is the canonical boss code length. Import keeps only
// alphanumeric tokens of exactly this length.
const CodeLength = 5

// BossCode represents boss_codes table.
// IsUsed transitions false to true exactly once; a claimed code never
// returns to the pool.
type BossCode struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Value     string     `gorm:"uniqueIndex;size:5;not null" json:"value"`
	IsUsed    bool       `gorm:"not null;default:false;index" json:"is_used"`
	ClaimedBy *uint      `gorm:"index" json:"claimed_by"`
	ClaimedAt *time.Time `json:"claimed_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (BossCode) TableName() string {
	return "boss_codes"
}

// ============================================================
// Redemption Records
// ============================================================

// RedemptionRecord represents redemption_records table (append-only audit trail).
// CodeValue is a denormalized snapshot taken at claim time. BatchID groups the
// codes granted in one redemption call; legacy rows carry an empty batch id.
type RedemptionRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	CodeID    uint      `gorm:"not null;index" json:"code_id"`
	CodeValue string    `gorm:"size:5;not null" json:"code_value"`
	BatchID   string    `gorm:"size:36;index" json:"batch_id"`
	ClaimedAt time.Time `gorm:"not null" json:"claimed_at"`

	// Relations
	User *User     `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Code *BossCode `gorm:"foreignKey:CodeID" json:"code,omitempty"`
}

func (RedemptionRecord) TableName() string {
	return "redemption_records"
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate runs auto migration for all tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&RefreshToken{},
		&BossCode{},
		&RedemptionRecord{},
	)
}
