package services

import (
	"encoding/json"
	"time"

	"github.com/huangang/campy/internal/models"
	"github.com/huangang/campy/pkg/logger"
	"gorm.io/gorm"
)

// AuditEntry describes one write request to record.
type AuditEntry struct {
	UserID    *uint
	ProjectID *uint
	Module    string
	Action    string
	Message   string
	Status    int
	IP        string
	UserAgent string
	Extra     interface{}
}

type AuditService struct {
	db *gorm.DB
}

func NewAuditService(db *gorm.DB) *AuditService {
	return &AuditService{db: db}
}

// Record stores an entry. Failures are logged, never returned.
func (s *AuditService) Record(e AuditEntry) {
	row := &models.AuditLog{
		UserID:    e.UserID,
		ProjectID: e.ProjectID,
		Module:    e.Module,
		Action:    e.Action,
		Message:   e.Message,
		Status:    e.Status,
		IP:        e.IP,
		UserAgent: e.UserAgent,
	}
	if e.Extra != nil {
		if b, err := json.Marshal(e.Extra); err == nil {
			row.Extra = string(b)
		}
	}
	if err := s.db.Create(row).Error; err != nil {
		logger.Warn().Err(err).Str("module", e.Module).Msg("failed to write audit log")
	}
}

type AuditListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size" binding:"omitempty,max=100"`
	Module   string `form:"module"`
	Action   string `form:"action"`
}

type AuditListResponse struct {
	Total    int64             `json:"total"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Items    []models.AuditLog `json:"items"`
}

// ListForProject pages through a project's audit trail for its managers.
func (s *AuditService) ListForProject(actor Actor, projectID uint, req *AuditListRequest) (*AuditListResponse, error) {
	if _, err := NewProjectService(s.db).Authorize(actor, projectID, canManage); err != nil {
		return nil, err
	}
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 {
		req.PageSize = 20
	}

	query := s.db.Model(&models.AuditLog{}).Where("project_id = ?", projectID)
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action = ?", req.Action)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	items := []models.AuditLog{}
	if err := query.Order("created_at DESC, id DESC").
		Offset((req.Page - 1) * req.PageSize).Limit(req.PageSize).
		Find(&items).Error; err != nil {
		return nil, err
	}
	return &AuditListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// CleanupOlderThan deletes entries older than retentionDays and returns the
// number removed. Zero or negative retention keeps everything.
func (s *AuditService) CleanupOlderThan(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	res := s.db.Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	return res.RowsAffected, res.Error
}
