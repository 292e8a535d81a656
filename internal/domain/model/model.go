// Package model contains domain models passed between layers.
//
// The structs double as persistence records: gorm tags describe the schema and
// json tags the wire shape. Nothing in this package talks to a database.
package model

import (
	"time"

	"github.com/google/uuid"
)

// Role is the authorization role of a user.
type Role string

// Supported roles.
const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is a participant resolved from a GitHub identity.
// XP and Level change only through the crediting transaction.
type User struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	GitHubID  string    `gorm:"column:github_id;size:64;uniqueIndex;not null" json:"githubId"`
	Login     string    `gorm:"size:255" json:"login"`
	Name      string    `gorm:"size:255" json:"name"`
	Email     string    `gorm:"size:255;index" json:"email"`
	Image     string    `gorm:"size:1024" json:"image"`
	Role      Role      `gorm:"size:16;not null;default:'USER'" json:"role"`
	XP        int64     `gorm:"not null;default:0;index" json:"xp"`
	Level     int       `gorm:"not null;default:1" json:"level"`
	Credits   int64     `gorm:"not null;default:0" json:"credits"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// ContributionEvent is one scored unit of GitHub activity. Append-only.
type ContributionEvent struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;index:idx_contrib_user_ts,priority:1;not null" json:"userId"`
	EventType   string    `gorm:"size:64;not null" json:"type"`
	Description string    `gorm:"size:255" json:"message"`
	XPDelta     int64     `gorm:"column:xp_delta;not null" json:"xp"`
	DeliveryID  *string   `gorm:"size:128;uniqueIndex" json:"-"`
	Timestamp   time.Time `gorm:"index:idx_contrib_user_ts,priority:2;not null" json:"timestamp"`
}

// TableName keeps the table name stable across struct renames.
func (ContributionEvent) TableName() string { return "contributions" }

// AwayStatus is the lifecycle state of an away period.
type AwayStatus string

// Away period states. PENDING is the only non-terminal state.
const (
	AwayPending  AwayStatus = "PENDING"
	AwayApproved AwayStatus = "APPROVED"
	AwayRejected AwayStatus = "REJECTED"
)

// IsDecision reports whether s is a status a reviewer may set.
func (s AwayStatus) IsDecision() bool {
	return s == AwayApproved || s == AwayRejected
}

// AwayPeriod is a date range during which an owner is expected to be inactive.
// StartDate and EndDate are civil dates stored at midnight UTC; EndDate is inclusive.
type AwayPeriod struct {
	ID        uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID  `gorm:"type:uuid;index;not null" json:"userId"`
	Reason    string     `gorm:"size:1024" json:"reason"`
	StartDate time.Time  `gorm:"type:date;not null" json:"startDate"`
	EndDate   time.Time  `gorm:"type:date;not null" json:"endDate"`
	Status    AwayStatus `gorm:"size:16;not null;index" json:"status"`
	DecidedBy *uuid.UUID `gorm:"type:uuid" json:"decidedBy,omitempty"`
	DecidedAt *time.Time `json:"decidedAt,omitempty"`
	CreatedAt time.Time  `gorm:"index" json:"createdAt"`
}

// TableName keeps the table name stable across struct renames.
func (AwayPeriod) TableName() string { return "away_periods" }

// GoalStatus is the state of a weekly goal.
type GoalStatus string

// Weekly goal states.
const (
	GoalPending   GoalStatus = "PENDING"
	GoalCompleted GoalStatus = "COMPLETED"
)

// WeeklyGoal is a target assigned to a user by an administrator.
type WeeklyGoal struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID  `gorm:"type:uuid;index;not null" json:"userId"`
	AssignedBy    uuid.UUID  `gorm:"type:uuid" json:"assignedBy"`
	Description   string     `gorm:"size:1024;not null" json:"description"`
	Target        int        `gorm:"not null" json:"target"`
	WeekStartDate time.Time  `gorm:"type:date;not null" json:"weekStartDate"`
	Status        GoalStatus `gorm:"size:16;not null;index" json:"status"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Message is a chat message.
type Message struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;index;not null" json:"userId"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}
