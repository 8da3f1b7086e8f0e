package enums

import "fmt"

// CampaignPurpose classifies why a campaign contacts customers.
type CampaignPurpose string

const (
	PurposeFraudAlert    CampaignPurpose = "fraud_alert"
	PurposeKYCUpdate     CampaignPurpose = "kyc_update"
	PurposeCollections   CampaignPurpose = "collections"
	PurposeCaseFollowUp  CampaignPurpose = "case_follow_up"
	PurposeServiceNotice CampaignPurpose = "service_notice"
)

var validCampaignPurposes = []CampaignPurpose{
	PurposeFraudAlert,
	PurposeKYCUpdate,
	PurposeCollections,
	PurposeCaseFollowUp,
	PurposeServiceNotice,
}

// IsValid reports whether the value matches the canonical purpose enum.
func (p CampaignPurpose) IsValid() bool {
	for _, candidate := range validCampaignPurposes {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParseCampaignPurpose converts raw input into CampaignPurpose.
func ParseCampaignPurpose(value string) (CampaignPurpose, error) {
	for _, candidate := range validCampaignPurposes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid campaign purpose %q", value)
}

// CampaignStatus tracks whether a campaign may dispatch jobs.
type CampaignStatus string

const (
	CampaignStatusActive CampaignStatus = "active"
	CampaignStatusPaused CampaignStatus = "paused"
)

// IsValid reports whether the value matches the canonical status enum.
func (s CampaignStatus) IsValid() bool {
	return s == CampaignStatusActive || s == CampaignStatusPaused
}
