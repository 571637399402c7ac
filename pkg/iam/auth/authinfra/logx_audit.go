package authinfra

import (
	"context"
	"time"

	"github.com/Abraxas-365/gatekeep/pkg/iam/auth"
	"github.com/Abraxas-365/gatekeep/pkg/logx"
)

// LogxAuditService implements auth.AuditService using structured logx logging.
type LogxAuditService struct{}

var _ auth.AuditService = (*LogxAuditService)(nil)

func NewLogxAuditService() *LogxAuditService {
	return &LogxAuditService{}
}

func (s *LogxAuditService) LogCredentialAuthentication(_ context.Context, credType, id string, consumer *auth.Consumer) {
	fields := logx.Fields{
		"audit_event":     "credential_authentication",
		"credential_type": credType,
		"credential_id":   id,
		"success":         consumer != nil,
		"timestamp":       time.Now(),
	}
	if consumer != nil {
		fields["consumer_id"] = consumer.ID()
		fields["consumer_kind"] = consumer.Kind
	}
	logx.WithFields(fields).Info("Audit: credential authentication")
}

func (s *LogxAuditService) LogTokenAuthentication(_ context.Context, tokenID string, consumer *auth.Consumer) {
	fields := logx.Fields{
		"audit_event": "token_authentication",
		"token_id":    tokenID,
		"success":     consumer != nil,
		"timestamp":   time.Now(),
	}
	if consumer != nil {
		fields["consumer_id"] = consumer.ID()
		fields["consumer_kind"] = consumer.Kind
	}
	logx.WithFields(fields).Info("Audit: token authentication")
}

func (s *LogxAuditService) LogAuthorizationDenied(_ context.Context, subject string, scopes []string) {
	logx.WithFields(logx.Fields{
		"audit_event": "authorization_denied",
		"subject":     subject,
		"scopes":      scopes,
		"timestamp":   time.Now(),
	}).Warn("Audit: authorization denied")
}
