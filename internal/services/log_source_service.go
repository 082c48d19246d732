package services

import (
	"errors"
	"fmt"
	"path/filepath"

	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/models"
)

// LogSourceService is the registry of log sources.
type LogSourceService struct {
	db *gorm.DB
}

func NewLogSourceService(db *gorm.DB) *LogSourceService {
	return &LogSourceService{db: db}
}

// NormalizePath returns the cleaned absolute form under which sources are stored.
func NormalizePath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	return filepath.Clean(abs), nil
}

// FindByPath returns the file source registered for path.
func (s *LogSourceService) FindByPath(path string) (*models.LogSource, error) {
	norm, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	var src models.LogSource
	err = s.db.Where("path = ? AND type = ?", norm, models.LogSourceTypeFile).Order("created_at").First(&src).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find source by path: %w", err)
	}
	return &src, nil
}

// CreateSource registers an active file source named "auto:<path>".
func (s *LogSourceService) CreateSource(path string) (*models.LogSource, error) {
	norm, err := NormalizePath(path)
	if err != nil {
		return nil, err
	}
	src := models.NewFileSource(norm)
	if err := s.db.Create(src).Error; err != nil {
		return nil, fmt.Errorf("create source: %w", err)
	}
	logger.Component("ingest").WithField("path", norm).Info("registered log source")
	return src, nil
}

// GetOrCreate returns the existing source for path or registers a new one.
func (s *LogSourceService) GetOrCreate(path string) (*models.LogSource, error) {
	src, err := s.FindByPath(path)
	if err == nil {
		return src, nil
	}
	if !errors.Is(err, ErrSourceNotFound) {
		return nil, err
	}
	return s.CreateSource(path)
}

func (s *LogSourceService) Get(id string) (*models.LogSource, error) {
	var src models.LogSource
	err := s.db.First(&src, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get source: %w", err)
	}
	return &src, nil
}

func (s *LogSourceService) List() ([]models.LogSource, error) {
	var sources []models.LogSource
	result := s.db.Order("created_at").Find(&sources)
	return sources, result.Error
}

func (s *LogSourceService) ListActive() ([]models.LogSource, error) {
	var sources []models.LogSource
	result := s.db.Where("active = ?", true).Order("created_at").Find(&sources)
	return sources, result.Error
}

// Activate marks a source active. Watchers pick the change up on next start.
func (s *LogSourceService) Activate(id string) error {
	return s.setActive(id, true)
}

func (s *LogSourceService) Deactivate(id string) error {
	return s.setActive(id, false)
}

func (s *LogSourceService) setActive(id string, active bool) error {
	result := s.db.Model(&models.LogSource{}).Where("id = ?", id).Update("active", active)
	if result.Error != nil {
		return fmt.Errorf("update source: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrSourceNotFound
	}
	return nil
}
