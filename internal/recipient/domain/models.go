package domain

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// Group is a named list of contacts that receives notifications.
type Group struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	GroupName   string    `gorm:"type:varchar(100);not null;uniqueIndex" json:"group_name"`
	Description string    `gorm:"type:text" json:"description,omitempty"`
	IsActive    bool      `gorm:"not null;default:true" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Group) TableName() string { return "notification_groups" }

type Contact struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	GroupID     int64     `gorm:"not null;index:idx_notification_contacts_group_active,priority:1" json:"group_id"`
	Name        string    `gorm:"type:varchar(150);not null" json:"name"`
	PhoneNumber string    `gorm:"type:varchar(30);not null" json:"phone_number"`
	Role        string    `gorm:"type:varchar(100)" json:"role,omitempty"`
	IsActive    bool      `gorm:"not null;default:true;index:idx_notification_contacts_group_active,priority:2" json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Contact) TableName() string { return "notification_contacts" }

// CompanySetting routes one company's notifications to a group using a
// template. A company can hold one setting per group.
type CompanySetting struct {
	ID                  int64             `gorm:"primaryKey" json:"id"`
	CompanySubdomain    string            `gorm:"type:varchar(100);not null;uniqueIndex:ux_company_notification_settings_company_group,priority:1" json:"company_subdomain"`
	NotificationGroupID int64             `gorm:"not null;uniqueIndex:ux_company_notification_settings_company_group,priority:2" json:"notification_group_id"`
	TemplateName        string            `gorm:"type:varchar(100);not null" json:"template_name"`
	IsActive            bool              `gorm:"not null;default:true" json:"is_active"`
	AdditionalSettings  datatypes.JSONMap `json:"additional_settings,omitempty"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

func (CompanySetting) TableName() string { return "company_notification_settings" }

// IncludeParameters reports whether template parameters should be sent.
// Settings default to true; "include_parameters": false opts out.
func (s CompanySetting) IncludeParameters() bool {
	raw, ok := s.AdditionalSettings["include_parameters"]
	if !ok || raw == nil {
		return true
	}
	switch v := raw.(type) {
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "false", "0", "no", "off":
			return false
		}
	}
	return true
}

// Recipients is the resolved delivery target for one company.
type Recipients struct {
	Setting  CompanySetting `json:"setting"`
	Group    Group          `json:"group"`
	Contacts []Contact      `json:"contacts"`
	Phones   []string       `json:"phones"`
}

// ConfiguredCompany is an active company setting with its group name.
type ConfiguredCompany struct {
	SettingID    int64  `json:"setting_id"`
	Subdomain    string `json:"company_subdomain"`
	GroupID      int64  `json:"notification_group_id"`
	GroupName    string `json:"group_name"`
	TemplateName string `json:"template_name"`
}

// GroupSummary lists an active group with its active contacts and the
// companies routed to it.
type GroupSummary struct {
	Group
	Contacts  []Contact `json:"contacts"`
	Companies []string  `json:"companies"`
}
