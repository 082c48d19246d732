package services

import (
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/metrics"
	"github.com/Wikid82/logwarden/internal/models"
)

// AlertService persists alerts and toggles their active flag.
type AlertService struct {
	db *gorm.DB
}

func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{db: db}
}

func (s *AlertService) Create(alert *models.Alert) error {
	if err := s.db.Create(alert).Error; err != nil {
		return fmt.Errorf("create alert: %w", err)
	}
	metrics.IncAlertCreated(alert.Severity.String())
	return nil
}

func (s *AlertService) GetByID(id string) (*models.Alert, error) {
	var alert models.Alert
	err := s.db.First(&alert, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get alert: %w", err)
	}
	return &alert, nil
}

// List returns alerts newest first; activeOnly limits it to active ones.
func (s *AlertService) List(activeOnly bool) ([]models.Alert, error) {
	var alerts []models.Alert
	q := s.db.Order("created_at desc")
	if activeOnly {
		q = q.Where("active = ?", true)
	}
	result := q.Find(&alerts)
	return alerts, result.Error
}

func (s *AlertService) ListActive() ([]models.Alert, error) {
	return s.List(true)
}

func (s *AlertService) Deactivate(id string) error {
	return s.setActive(id, false)
}

func (s *AlertService) Activate(id string) error {
	return s.setActive(id, true)
}

func (s *AlertService) setActive(id string, active bool) error {
	result := s.db.Model(&models.Alert{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return fmt.Errorf("update alert: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlertNotFound
	}
	return nil
}
