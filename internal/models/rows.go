package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRow is the bun row model backing scim_users: a hybrid of typed
// columns for the commonly filtered/sorted attributes and a jsonb `data`
// column carrying the rest of the open SCIM User document.
type UserRow struct {
	bun.BaseModel `bun:"table:scim_users,alias:u"`

	ID       uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	TenantID string    `bun:"tenant_id,notnull"`

	UserName    string `bun:"user_name,notnull"`
	ExternalID  string `bun:"external_id"`
	Active      bool   `bun:"active,notnull,default:true"`
	DisplayName string `bun:"display_name"`
	NickName    string `bun:"nick_name"`
	Title       string `bun:"title"`
	UserType    string `bun:"user_type"`

	Department       string `bun:"department"`
	CostCenter       string `bun:"cost_center"`
	HireDate         *time.Time `bun:"hire_date"`
	PerformanceScore *float64   `bun:"performance_score"`
	ManagerLevel     string     `bun:"manager_level"`

	PasswordHash string `bun:"password_hash"`

	Version int64 `bun:"version,notnull,default:1"`

	Data []byte `bun:"data,type:jsonb,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// GroupRow is the bun row model backing scim_groups.
type GroupRow struct {
	bun.BaseModel `bun:"table:scim_groups,alias:g"`

	ID         uuid.UUID `bun:"id,pk,type:uuid,default:gen_random_uuid()"`
	TenantID   string    `bun:"tenant_id,notnull"`
	DisplayName string   `bun:"display_name,notnull"`
	ExternalID string    `bun:"external_id"`

	Version int64 `bun:"version,notnull,default:1"`

	Data []byte `bun:"data,type:jsonb,notnull"`

	CreatedAt time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// GroupMemberRow is the membership join table: group -> member (User or
// nested Group), scoped by tenant so referential integrity never crosses
// tenant boundaries.
type GroupMemberRow struct {
	bun.BaseModel `bun:"table:scim_group_members,alias:gm"`

	TenantID   string    `bun:"tenant_id,notnull"`
	GroupID    uuid.UUID `bun:"group_id,pk,type:uuid"`
	MemberID   uuid.UUID `bun:"member_id,pk,type:uuid"`
	MemberType string    `bun:"member_type,notnull"` // "User" | "Group"
}
