package models

import (
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/harborfin/contactdesk-backend/pkg/db/types"
	"github.com/harborfin/contactdesk-backend/pkg/enums"
)

// OutboundCampaign groups outbound jobs by purpose.
type OutboundCampaign struct {
	ID              uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name            string                `gorm:"column:name;type:text;not null" json:"name"`
	Purpose         enums.CampaignPurpose `gorm:"column:purpose;type:text;not null" json:"purpose"`
	AllowedChannels dbtypes.ChannelList   `gorm:"column:allowed_channels;type:text[];not null" json:"allowedChannels"`
	Status          enums.CampaignStatus  `gorm:"column:status;type:text;not null;default:'active'" json:"status"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (OutboundCampaign) TableName() string { return "outbound_campaigns" }
