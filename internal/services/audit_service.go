package services

import (
	"encoding/json"
	"strings"

	"gorm.io/gorm"

	"tripsync/internal/logger"
	"tripsync/internal/models"
)

// maxAuditChanges bounds the stored changes document.
const maxAuditChanges = 4096

// sensitiveAuditKeys are never written to the audit trail.
var sensitiveAuditKeys = []string{"password", "token", "secret"}

// auditService records who did what to which trip resource.
type auditService struct {
	db *gorm.DB
}

// NewAuditService creates a new AuditServicer.
func NewAuditService(db *gorm.DB) AuditServicer {
	return &auditService{db: db}
}

// Log records an audit event. Failures are logged and swallowed so that an
// audit problem never fails the request that triggered it.
func (s *auditService) Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{}) {
	entry := &models.AuditLog{
		UserID:       userID,
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    ipAddress,
		Changes:      encodeChanges(action, changes),
	}

	if err := s.db.Create(entry).Error; err != nil {
		logger.Get().Errorw("failed to create audit log entry",
			"error", err,
			"user_id", userID,
			"action", action,
			"resource_type", resourceType,
			"resource_id", resourceID,
		)
	}
}

// encodeChanges renders changes as JSON with sensitive values masked.
// Oversized documents are replaced by a marker rather than cut mid-value.
func encodeChanges(action string, changes map[string]interface{}) string {
	if len(changes) == 0 {
		return ""
	}
	clean := make(map[string]interface{}, len(changes))
	for k, v := range changes {
		if isSensitiveKey(k) {
			clean[k] = "[redacted]"
			continue
		}
		clean[k] = v
	}

	data, err := json.Marshal(clean)
	if err != nil {
		logger.Get().Errorw("failed to marshal audit log changes", "error", err, "action", action)
		return "{}"
	}
	if len(data) > maxAuditChanges {
		return `{"truncated":true}`
	}
	return string(data)
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveAuditKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}
