// Package settings reads admin-editable runtime settings from the settings
// table and keeps a short-lived copy in memory.
package settings

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"chatbot-billing-be/internal/entity"
	ierr "chatbot-billing-be/internal/pkg/errors"
	"chatbot-billing-be/internal/pkg/logger"
	"chatbot-billing-be/internal/repository/unitofwork"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
)

const (
	notificationKey = "notification_settings"
	defaultTTL      = time.Minute
)

type Provider interface {
	NotificationSettings(ctx context.Context) (entity.NotificationSettings, error)
}

type CachedProvider struct {
	factory        unitofwork.RepositoryFactory
	cache          *cache.Cache
	fallbackEmails []string
	logger         logger.ILogger
}

// NewCachedProvider caches the parsed settings for ttl. fallbackEmails is used
// when the table has no admin list.
func NewCachedProvider(factory unitofwork.RepositoryFactory, ttl time.Duration, fallbackEmails []string, log logger.ILogger) *CachedProvider {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &CachedProvider{
		factory:        factory,
		cache:          cache.New(ttl, 2*ttl),
		fallbackEmails: fallbackEmails,
		logger:         log,
	}
}

func (p *CachedProvider) NotificationSettings(ctx context.Context) (entity.NotificationSettings, error) {
	if x, found := p.cache.Get(notificationKey); found {
		return x.(entity.NotificationSettings), nil
	}

	rows, err := p.factory.NewUnitOfWork(ctx).SettingsRepository().FindAll(ctx)
	if err != nil {
		return entity.NotificationSettings{}, ierr.WithError(err).WithHint("Failed to load settings").Mark(ierr.ErrDatabase)
	}

	values := lo.SliceToMap(rows, func(s *entity.Setting) (string, string) { return s.Key, s.Value })
	parsed := entity.NotificationSettings{
		TogglePushNotifications:     ParseBool(values[entity.SettingTogglePushNotifications]),
		PushNotificationAdminEmails: ParseEmailList(values[entity.SettingPushNotificationAdminEmails]),
	}
	if len(parsed.PushNotificationAdminEmails) == 0 && len(p.fallbackEmails) > 0 {
		parsed.PushNotificationAdminEmails = p.fallbackEmails
	}

	p.cache.SetDefault(notificationKey, parsed)
	return parsed, nil
}

// UpdateNotificationSettings writes both keys and drops the cached copy.
func (p *CachedProvider) UpdateNotificationSettings(ctx context.Context, s entity.NotificationSettings) error {
	uow := p.factory.NewUnitOfWork(ctx)
	err := unitofwork.WithinTransaction(ctx, uow, func() error {
		repo := uow.SettingsRepository()
		if err := repo.Upsert(ctx, &entity.Setting{
			Key:   entity.SettingTogglePushNotifications,
			Value: strconv.FormatBool(s.TogglePushNotifications),
		}); err != nil {
			return err
		}
		return repo.Upsert(ctx, &entity.Setting{
			Key:   entity.SettingPushNotificationAdminEmails,
			Value: strings.Join(s.PushNotificationAdminEmails, ","),
		})
	})
	if err != nil {
		return ierr.WithError(err).WithHint("Failed to save settings").Mark(ierr.ErrDatabase)
	}

	p.Invalidate()
	p.logger.Info("SETTINGS", "Notification settings updated", map[string]interface{}{
		"toggle_push_notifications": s.TogglePushNotifications,
		"admin_emails":              len(s.PushNotificationAdminEmails),
	})
	return nil
}

func (p *CachedProvider) Invalidate() {
	p.cache.Delete(notificationKey)
}

func ParseBool(raw string) bool {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on", "enabled":
		return true
	}
	return false
}

// ParseEmailList accepts a JSON array or a comma separated list.
func ParseEmailList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var parts []string
	if strings.HasPrefix(raw, "[") {
		if err := json.Unmarshal([]byte(raw), &parts); err != nil {
			return nil
		}
	} else {
		parts = strings.Split(raw, ",")
	}

	emails := lo.FilterMap(parts, func(p string, _ int) (string, bool) {
		p = strings.TrimSpace(p)
		return p, strings.Contains(p, "@")
	})
	return lo.Uniq(emails)
}

// Static is a fixed Provider.
type Static entity.NotificationSettings

func (s Static) NotificationSettings(context.Context) (entity.NotificationSettings, error) {
	return entity.NotificationSettings(s), nil
}
