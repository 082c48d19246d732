package services

import (
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/containrrr/shoutrrr"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/Wikid82/logwarden/internal/logger"
	"github.com/Wikid82/logwarden/internal/metrics"
	"github.com/Wikid82/logwarden/internal/models"
)

// AlertMailer delivers the alert email.
type AlertMailer interface {
	SendAlertEmail(recipient string, alert *models.Alert) error
}

// NotificationService records in-app notifications and fans alerts out to
// email and the configured shoutrrr services.
type NotificationService struct {
	DB     *gorm.DB
	mailer AlertMailer
	urls   []string
	send   func(url, message string) error
	log    *logrus.Entry
	wg     sync.WaitGroup
}

func NewNotificationService(db *gorm.DB, mailer AlertMailer, urls []string) *NotificationService {
	normalized := make([]string, 0, len(urls))
	for _, u := range urls {
		if u = strings.TrimSpace(u); u != "" {
			normalized = append(normalized, normalizeURL(u))
		}
	}
	return &NotificationService{
		DB:     db,
		mailer: mailer,
		urls:   normalized,
		send:   func(url, message string) error { return shoutrrr.Send(url, message) },
		log:    logger.Component("notify"),
	}
}

var discordWebhookRegex = regexp.MustCompile(`^https://discord(?:app)?\.com/api/webhooks/(\d+)/([a-zA-Z0-9_-]+)`)

// normalizeURL turns a pasted Discord webhook URL into its shoutrrr form.
func normalizeURL(rawURL string) string {
	matches := discordWebhookRegex.FindStringSubmatch(rawURL)
	if len(matches) == 3 {
		return fmt.Sprintf("discord://%s@%s", matches[2], matches[1])
	}
	return rawURL
}

// Internal Notifications (DB)

func (s *NotificationService) Create(nType models.NotificationType, title, message, alertID string) (*models.Notification, error) {
	notification := &models.Notification{
		Type:    nType,
		Title:   title,
		Message: message,
		AlertID: alertID,
		Read:    false,
	}
	result := s.DB.Create(notification)
	return notification, result.Error
}

func (s *NotificationService) List(unreadOnly bool) ([]models.Notification, error) {
	var notifications []models.Notification
	query := s.DB.Order("created_at desc")
	if unreadOnly {
		query = query.Where("read = ?", false)
	}
	result := query.Find(&notifications)
	return notifications, result.Error
}

// ListForAlert returns the notifications raised for one alert, newest first.
func (s *NotificationService) ListForAlert(alertID string) ([]models.Notification, error) {
	var notifications []models.Notification
	result := s.DB.Where("alert_id = ?", alertID).Order("created_at desc").Find(&notifications)
	return notifications, result.Error
}

func (s *NotificationService) MarkAsRead(id string) error {
	result := s.DB.Model(&models.Notification{}).Where("id = ?", id).Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *NotificationService) MarkAllAsRead() error {
	return s.DB.Model(&models.Notification{}).Where("read = ?", false).Update("read", true).Error
}

// External Notifications (Shoutrrr)

// SendExternal posts title and message to every configured URL, each in its
// own goroutine. Failures are logged and counted.
func (s *NotificationService) SendExternal(title, message string) {
	msg := fmt.Sprintf("%s\n\n%s", title, message)
	for _, url := range s.urls {
		s.wg.Add(1)
		go func(url string) {
			defer s.wg.Done()
			if err := s.send(url, msg); err != nil {
				metrics.IncNotificationFailure()
				s.log.WithError(err).WithField("service", serviceName(url)).Warn("Failed to send notification")
			}
		}(url)
	}
}

// Wait blocks until background sends have finished.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func serviceName(url string) string {
	if i := strings.Index(url, "://"); i > 0 {
		return url[:i]
	}
	return "unknown"
}

// NotifyAlertCreated stores the in-app notification and returns its outcome.
// The chat fan-out and the email to recipient run in the background and are
// tracked by Wait; their failures are logged and counted. An empty recipient
// skips the email only.
func (s *NotificationService) NotifyAlertCreated(alert *models.Alert, recipient string) error {
	title := AlertSubject(alert)
	body := fmt.Sprintf("%s\nRules: %s\nSource: %s\nRecord: %s",
		alert.Message, strings.Join(alert.RuleNames, ", "), alert.SourceID, alert.LogRecordID)

	_, err := s.Create(models.NotificationTypeFor(alert.Severity), title, alert.Message, alert.ID)
	if err != nil {
		err = fmt.Errorf("store notification: %w", err)
	}

	s.SendExternal(title, body)

	if recipient != "" && s.mailer != nil {
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if mailErr := s.mailer.SendAlertEmail(recipient, alert); mailErr != nil {
				metrics.IncNotificationFailure()
				s.log.WithError(mailErr).WithField("alert_id", alert.ID).Error("Failed to send alert email")
			}
		}()
	}
	return err
}
