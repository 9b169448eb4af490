package jobs

import (
	"context"
	"fmt"

	"github.com/ShakerUp/tg-bot-sproxy/internal/service"
	"github.com/ShakerUp/tg-bot-sproxy/utils"
	"github.com/robfig/cron/v3"
)

// Notifier доставляет текст пользователю; подставляется ботом, чтобы
// jobs не зависел от пакета bot.
type Notifier func(chatID int64, text string)

// Scheduler запускает периодическое освобождение прокси с истёкшей
// арендой.
type Scheduler struct {
	cron    *cron.Cron
	service *service.Service
	notify  Notifier
	logger  *utils.Logger
}

func NewScheduler(svc *service.Service, notify Notifier, logger *utils.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		service: svc,
		notify:  notify,
		logger:  logger,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc("@hourly", s.releaseExpired); err != nil {
		return fmt.Errorf("failed to schedule expiry sweep: %w", err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) releaseExpired() {
	released, err := s.service.ReleaseExpiredProxies(context.Background())
	if err != nil {
		s.logger.Errorf("Expiry sweep failed: %v", err)
		return
	}
	if len(released) == 0 {
		return
	}

	s.logger.Infof("Released %d expired proxies", len(released))
	for _, lease := range released {
		if lease.ChatID == 0 || s.notify == nil {
			continue
		}
		s.notify(lease.ChatID, "Срок аренды вашего прокси истёк. Вы можете продлить доступ, арендовав прокси снова.")
	}
}
