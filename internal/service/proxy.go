package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
)

// ParseProxyInput разбирает строку вида
//
//	SOCKS5: host:port:login:pass | HTTP: host:port | ChangeIP: url
//
// в новую свободную запись прокси.
func ParseProxyInput(text string) (*models.Proxy, error) {
	parts := strings.Split(text, "|")

	var socksPart, httpPart, changeIPPart string
	for _, part := range parts {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "SOCKS5:"):
			socksPart = strings.TrimSpace(strings.TrimPrefix(part, "SOCKS5:"))
		case strings.HasPrefix(part, "HTTP:"):
			httpPart = strings.TrimSpace(strings.TrimPrefix(part, "HTTP:"))
		case strings.HasPrefix(part, "ChangeIP:"):
			changeIPPart = strings.TrimSpace(strings.TrimPrefix(part, "ChangeIP:"))
		}
	}

	if socksPart == "" || httpPart == "" || changeIPPart == "" {
		return nil, fmt.Errorf("ожидается формат: SOCKS5: host:port:login:pass | HTTP: host:port | ChangeIP: url")
	}

	socksFields := strings.Split(socksPart, ":")
	if len(socksFields) != 4 {
		return nil, fmt.Errorf("неверный формат SOCKS5-части: %s", socksPart)
	}
	socksPort, err := strconv.Atoi(socksFields[1])
	if err != nil {
		return nil, fmt.Errorf("неверный SOCKS-порт: %s", socksFields[1])
	}

	httpFields := strings.Split(httpPart, ":")
	if len(httpFields) != 2 {
		return nil, fmt.Errorf("неверный формат HTTP-части: %s", httpPart)
	}
	httpPort, err := strconv.Atoi(httpFields[1])
	if err != nil {
		return nil, fmt.Errorf("неверный HTTP-порт: %s", httpFields[1])
	}

	return &models.Proxy{
		HostIP:      socksFields[0],
		SocksPort:   socksPort,
		Login:       socksFields[2],
		Password:    socksFields[3],
		HTTPPort:    httpPort,
		ChangeIPURL: changeIPPart,
		IsFree:      true,
	}, nil
}

func (s *Service) AddProxy(ctx context.Context, text string) (*models.Proxy, error) {
	proxy, err := ParseProxyInput(text)
	if err != nil {
		return nil, err
	}

	if err := s.repo.CreateProxy(ctx, proxy); err != nil {
		return nil, fmt.Errorf("failed to create proxy: %w", err)
	}

	s.logger.Infof("Proxy %s added to the pool", proxy.Login)
	return proxy, nil
}

// FreeProxy освобождает прокси и ставит новый пароль.
func (s *Service) FreeProxy(ctx context.Context, login, newPassword string) error {
	proxy, err := s.repo.GetProxyByLogin(ctx, login)
	if err != nil {
		return err
	}
	if proxy == nil {
		return ErrProxyNotFound
	}

	proxy.IsFree = true
	proxy.ExpirationDate = nil
	proxy.UserTelegramID = nil
	proxy.Password = newPassword

	return s.repo.UpdateProxy(ctx, proxy, nil)
}

// GiveProxy выдаёт свободный прокси пользователю без списания средств.
func (s *Service) GiveProxy(ctx context.Context, login string, targetTelegramID int64, days int) (*models.User, error) {
	targetUser, err := s.repo.GetUser(ctx, targetTelegramID)
	if err != nil {
		return nil, err
	}
	if targetUser == nil {
		return nil, ErrUserNotFound
	}

	proxy, err := s.repo.GetProxyByLogin(ctx, login)
	if err != nil {
		return nil, err
	}
	if proxy == nil {
		return nil, ErrProxyNotFound
	}
	if !proxy.IsFree {
		return nil, ErrProxyOccupied
	}

	expiration := time.Now().AddDate(0, 0, days)
	proxy.IsFree = false
	proxy.ExpirationDate = &expiration
	proxy.UserTelegramID = &targetTelegramID

	if err := s.repo.UpdateProxy(ctx, proxy, nil); err != nil {
		return nil, err
	}

	s.logger.Infof("Proxy %s given to user %d for %d days", login, targetTelegramID, days)
	return targetUser, nil
}

func (s *Service) UpdateProxyPassword(ctx context.Context, login, newPassword string) error {
	proxy, err := s.repo.GetProxyByLogin(ctx, login)
	if err != nil {
		return err
	}
	if proxy == nil {
		return ErrProxyNotFound
	}

	proxy.Password = newPassword
	return s.repo.UpdateProxy(ctx, proxy, nil)
}

func (s *Service) CountFreeProxies(ctx context.Context) (int64, error) {
	return s.repo.CountFreeProxies(ctx)
}

func (s *Service) GetProxiesByUser(ctx context.Context, telegramID int64) ([]models.Proxy, error) {
	return s.repo.GetProxiesByUser(ctx, telegramID)
}

func (s *Service) GetAllProxies(ctx context.Context) ([]models.Proxy, error) {
	return s.repo.GetAllProxies(ctx)
}

// ExpiredLease описывает истёкшую аренду для уведомления бывшего
// владельца.
type ExpiredLease struct {
	Login  string
	ChatID int64
}

// ReleaseExpiredProxies освобождает прокси с истёкшим сроком аренды.
func (s *Service) ReleaseExpiredProxies(ctx context.Context) ([]ExpiredLease, error) {
	expired, err := s.repo.GetExpiredProxies(ctx, time.Now())
	if err != nil {
		return nil, err
	}

	var released []ExpiredLease
	for i := range expired {
		proxy := &expired[i]

		var holderChatID int64
		if proxy.UserTelegramID != nil {
			holder, err := s.repo.GetUser(ctx, *proxy.UserTelegramID)
			if err == nil && holder != nil {
				holderChatID = holder.ChatID
			}
		}

		proxy.IsFree = true
		proxy.ExpirationDate = nil
		proxy.UserTelegramID = nil

		if err := s.repo.UpdateProxy(ctx, proxy, nil); err != nil {
			s.logger.Errorf("Failed to release expired proxy %s: %v", proxy.Login, err)
			continue
		}

		released = append(released, ExpiredLease{Login: proxy.Login, ChatID: holderChatID})
	}

	return released, nil
}
