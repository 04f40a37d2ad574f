package model

import "time"

// ApplicationStatus is the workflow state of a membership application.
// Transitions: pending → approved, pending → rejected. Both targets are
// terminal.
type ApplicationStatus string

const (
    ApplicationPending  ApplicationStatus = "pending"
    ApplicationApproved ApplicationStatus = "approved"
    ApplicationRejected ApplicationStatus = "rejected"
)

// applicationLabels holds the display text used by the front office.
// Stored and compared values are always the English enum values.
var applicationLabels = map[ApplicationStatus]string{
    ApplicationPending:  "承認待ち",
    ApplicationApproved: "承認済み",
    ApplicationRejected: "却下",
}

// IsValid reports whether s is a known status.
func (s ApplicationStatus) IsValid() bool {
    _, ok := applicationLabels[s]
    return ok
}

// IsTerminal reports whether no transition leaves s.
func (s ApplicationStatus) IsTerminal() bool {
    return s == ApplicationApproved || s == ApplicationRejected
}

// Label returns the Japanese display text for s.
func (s ApplicationStatus) Label() string {
    if l, ok := applicationLabels[s]; ok {
        return l
    }
    return string(s)
}

// ApplicantSnapshot is the would-be user's profile captured at
// submission time. PasswordHash is already hashed and is copied to the
// new user verbatim on approval.
type ApplicantSnapshot struct {
    Email        string
    PasswordHash string
    LastName     string
    FirstName    string
    PhoneNumber  string
    ZipCode      string
    Prefecture   string
    City         string
    Address      string
}

// DogSnapshot is the would-be dog's profile captured at submission time.
// A snapshot without a Name means no dog is provisioned on approval.
type DogSnapshot struct {
    Name               string
    Breed              string
    Weight             string
    Age                *int
    Gender             string
    Birthday           *time.Time
    VaccineCertificate string // storage key of the uploaded certificate
}

// HasDog reports whether the snapshot carries enough data to create a dog.
func (d DogSnapshot) HasDog() bool { return d.Name != "" }

// Application mirrors the `applications` table. UserID stays nil while
// the application is pending; ApprovedAt and ApprovedBy record the
// decision for both approvals and rejections.
type Application struct {
    ID              string
    UserID          *string
    Applicant       ApplicantSnapshot
    Dog             DogSnapshot
    Status          ApplicationStatus
    AdminNotes      *string
    RejectionReason *string
    ApprovedBy      *string
    ApprovedAt      *time.Time
    CreatedAt       time.Time
    UpdatedAt       time.Time
}

// ApplicationStats aggregates application counts for the admin console.
type ApplicationStats struct {
    Total    int `json:"total"`
    Pending  int `json:"pending"`
    Approved int `json:"approved"`
    Rejected int `json:"rejected"`
    Today    int `json:"today"`
}
