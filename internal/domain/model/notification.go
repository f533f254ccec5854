package model

import "time"

// NotificationKind distinguishes side effects handed to the notification pipeline.
type NotificationKind string

// Notification kinds.
const (
	NotifySubmission NotificationKind = "submission"
	NotifyReport     NotificationKind = "report"
)

// Notification is a fire-and-forget side effect of a submission or a report.
type Notification struct {
	ID        string           `json:"id"`
	Kind      NotificationKind `json:"kind"`
	Candidate *Candidate       `json:"candidate,omitempty"`
	Report    *Report          `json:"report,omitempty"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Report lists the approved candidates of a namespace at generation time.
type Report struct {
	AppID       string      `json:"appId"`
	Approved    []Candidate `json:"approved"`
	Total       int         `json:"total"`
	GeneratedAt time.Time   `json:"generatedAt"`
}

// Key returns the partition key used by sinks that need one.
func (n *Notification) Key() string {
	if n.Candidate != nil && n.Candidate.ID != "" {
		return n.Candidate.ID
	}
	return n.ID
}
