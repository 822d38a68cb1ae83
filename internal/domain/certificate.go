package domain

import "time"

// Certificate is a user-owned external credential record.
type Certificate struct {
	CertificateID  string    `json:"id" dynamodbav:"certificate_id"`
	UserID         string    `json:"-" dynamodbav:"user_id"`
	Title          string    `json:"title" dynamodbav:"title"`
	Issuer         string    `json:"issuer" dynamodbav:"issuer"`
	IssueDate      time.Time `json:"issue_date" dynamodbav:"issue_date"`
	CertificateURL string    `json:"certificate_url" dynamodbav:"certificate_url"`
}

type CreateCertificateRequest struct {
	Title          string `json:"title" validate:"required,max=200"`
	Issuer         string `json:"issuer" validate:"required,max=200"`
	IssueDate      string `json:"issue_date" validate:"required"` // YYYY-MM-DD
	CertificateURL string `json:"certificate_url" validate:"required,url,max=500"`
}
