package billing

import "github.com/google/uuid"

type planRequest struct {
	Code string `path:"code"`
}

type organizationRequest struct {
	OrganizationID uuid.UUID `path:"id"`
}

type historyRequest struct {
	OrganizationID uuid.UUID `path:"id"`
	Page           int       `query:"page"`
	Limit          int       `query:"limit"`
}

type featureRequest struct {
	OrganizationID uuid.UUID `path:"id"`
	Feature        string    `path:"code"`
}

type usageRequest struct {
	OrganizationID uuid.UUID `path:"id" json:"-"`
	Feature        string    `path:"code" json:"-"`
	Amount         int64     `json:"amount"`
}

type startTrialRequest struct {
	Name         string `json:"name"`
	ContactEmail string `json:"contact_email"`
}

type upgradeRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	License        string    `json:"license_code"`
	BillingCycle   string    `json:"billing_cycle"`
	UserID         string    `json:"user_id"`
}

type extendRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	AdditionalDays int       `json:"additional_days"`
}

type notificationsRequest struct {
	Days int `query:"days"`
}

type createTaskRequest struct {
	Title            string `json:"title"`
	Subtask          bool   `json:"is_subtask"`
	Recurring        bool   `json:"is_recurring"`
	RequiresApproval bool   `json:"requires_approval"`
}

type generateReportRequest struct {
	Kind string `json:"kind"`
}
