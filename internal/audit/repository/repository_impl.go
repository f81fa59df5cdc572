package repository

import (
	"context"
	"strings"

	auditdomain "github.com/smallbiznis/trailbook/internal/audit/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() auditdomain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, entry *auditdomain.AuditLog) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO audit_logs (id, actor_type, actor_id, action, target_type, target_id, metadata, ip_address, user_agent, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.ActorType,
		entry.ActorID,
		entry.Action,
		entry.TargetType,
		entry.TargetID,
		entry.Metadata,
		entry.IPAddress,
		entry.UserAgent,
		entry.CreatedAt,
	).Error
}

func (r *repo) List(ctx context.Context, db *gorm.DB, filter auditdomain.ListFilter) ([]*auditdomain.AuditLog, error) {
	stmt := db.WithContext(ctx).Model(&auditdomain.AuditLog{})
	if v := strings.TrimSpace(filter.Action); v != "" {
		stmt = stmt.Where("action = ?", v)
	}
	if v := strings.TrimSpace(filter.TargetType); v != "" {
		stmt = stmt.Where("target_type = ?", v)
	}
	if v := strings.TrimSpace(filter.TargetID); v != "" {
		stmt = stmt.Where("target_id = ?", v)
	}
	if v := strings.TrimSpace(filter.ActorType); v != "" {
		stmt = stmt.Where("actor_type = ?", v)
	}
	if filter.StartAt != nil {
		stmt = stmt.Where("created_at >= ?", *filter.StartAt)
	}
	if filter.EndAt != nil {
		stmt = stmt.Where("created_at <= ?", *filter.EndAt)
	}
	if filter.Cursor != nil {
		stmt = stmt.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}

	var items []*auditdomain.AuditLog
	err := stmt.
		Order("created_at desc, id desc").
		Limit(filter.Limit + 1).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
