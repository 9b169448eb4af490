package service

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
)

const proxyProbeURL = "https://www.google.com"

// ProxyHealth хранит результат проверки одного прокси.
type ProxyHealth struct {
	Login string
	OK    bool
}

// CheckAllProxies проверяет доступность каждого прокси из пула.
// Любая ошибка пробы означает "не работает", проверка остальных
// продолжается.
func (s *Service) CheckAllProxies(ctx context.Context) ([]ProxyHealth, error) {
	proxies, err := s.repo.GetAllProxies(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get proxies for health check: %w", err)
	}

	results := make([]ProxyHealth, 0, len(proxies))
	for i := range proxies {
		proxy := &proxies[i]
		ok := s.probeProxy(ctx, proxy)
		if !ok {
			s.logger.Warnf("Proxy %s failed health check", proxy.Login)
		}
		results = append(results, ProxyHealth{Login: proxy.Login, OK: ok})
	}
	return results, nil
}

// probeHTTPProxy делает запрос через HTTP-порт прокси с его учетными
// данными. Ответ любого статуса считается признаком живого прокси.
func probeHTTPProxy(ctx context.Context, proxy *models.Proxy) bool {
	proxyURL := &url.URL{
		Scheme: "http",
		Host:   fmt.Sprintf("%s:%d", proxy.HostIP, proxy.HTTPPort),
		User:   url.UserPassword(proxy.Login, proxy.Password),
	}

	client := &http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			Proxy: http.ProxyURL(proxyURL),
		},
	}
	defer client.CloseIdleConnections()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, proxyProbeURL, nil)
	if err != nil {
		return false
	}

	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}
