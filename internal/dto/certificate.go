package dto

// ── Certificate DTOs ──

// CertificateResponse certificate in the learner's list
type CertificateResponse struct {
	ID               string `json:"id"`
	CourseID         string `json:"course_id"`
	CourseTitle      string `json:"course_title,omitempty"`
	VerificationCode string `json:"verification_code"`
	VerifyURL        string `json:"verify_url"`
	IssuedAt         string `json:"issued_at"`
}

// CertificateReadModel everything the external renderer needs
type CertificateReadModel struct {
	CertificateID    string                 `json:"certificate_id"`
	VerificationCode string                 `json:"verification_code"`
	VerifyURL        string                 `json:"verify_url"`
	IssuedAt         string                 `json:"issued_at"`
	UserID           string                 `json:"user_id"`
	LearnerName      string                 `json:"learner_name"`
	LearnerEmail     string                 `json:"learner_email"`
	CourseID         string                 `json:"course_id"`
	CourseTitle      string                 `json:"course_title"`
	OrganizationID   *string                `json:"organization_id,omitempty"`
	OrganizationName *string                `json:"organization_name,omitempty"`
	PDFLocation      *string                `json:"pdf_location,omitempty"`
	Source           map[string]interface{} `json:"source,omitempty"`
}

// CertificateView public verification result; no contact details
type CertificateView struct {
	VerificationCode string  `json:"verification_code"`
	LearnerName      string  `json:"learner_name"`
	CourseTitle      string  `json:"course_title"`
	OrganizationName *string `json:"organization_name,omitempty"`
	IssuedAt         string  `json:"issued_at"`
}

// CertificateIssuedEvent published once per newly minted certificate
type CertificateIssuedEvent struct {
	CertificateID    string  `json:"certificate_id"`
	UserID           string  `json:"user_id"`
	CourseID         string  `json:"course_id"`
	OrganizationID   *string `json:"organization_id,omitempty"`
	VerificationCode string  `json:"verification_code"`
	IssuedAt         string  `json:"issued_at"`
}
