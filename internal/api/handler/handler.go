package handler

import (
	"ntraining/backend/internal/service"
	"ntraining/backend/pkg/redis"
)

// Handler aggregates the HTTP handlers of every module.
type Handler struct {
	License      *LicenseHandler
	Enrollment   *EnrollmentHandler
	Quiz         *QuizHandler
	Attempt      *AttemptHandler
	Certificate  *CertificateHandler
	Verification *VerificationHandler
	Export       *ExportHandler
	Session      *SessionHandler
}

// NewHandler wires handlers to their services. rdb may be nil.
func NewHandler(svc *service.Service, rdb *redis.Client) *Handler {
	var revoker TokenRevoker
	if rdb != nil {
		revoker = rdb
	}
	return &Handler{
		License:      NewLicenseHandler(svc.License),
		Enrollment:   NewEnrollmentHandler(svc.Enrollment),
		Quiz:         NewQuizHandler(svc.Quiz, svc.Enrollment),
		Attempt:      NewAttemptHandler(svc.Attempt),
		Certificate:  NewCertificateHandler(svc.Certificate),
		Verification: NewVerificationHandler(svc.Verification),
		Export:       NewExportHandler(svc.Export),
		Session:      NewSessionHandler(revoker),
	}
}
