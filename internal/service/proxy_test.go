package service

import (
	"context"
	"testing"
)

func TestParseProxyInput(t *testing.T) {
	proxy, err := ParseProxyInput("SOCKS5: 10.0.0.1:5001:px1:secret | HTTP: 10.0.0.1:8001 | ChangeIP: https://changeip.example/px1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if proxy.HostIP != "10.0.0.1" {
		t.Errorf("host = %s, want 10.0.0.1", proxy.HostIP)
	}
	if proxy.SocksPort != 5001 || proxy.HTTPPort != 8001 {
		t.Errorf("ports = %d/%d, want 5001/8001", proxy.SocksPort, proxy.HTTPPort)
	}
	if proxy.Login != "px1" || proxy.Password != "secret" {
		t.Errorf("credentials = %s/%s, want px1/secret", proxy.Login, proxy.Password)
	}
	if proxy.ChangeIPURL != "https://changeip.example/px1" {
		t.Errorf("change ip url = %s", proxy.ChangeIPURL)
	}
	if !proxy.IsFree {
		t.Error("new proxy must start free")
	}
}

func TestParseProxyInputRejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"SOCKS5: 10.0.0.1:5001:px1:secret",
		"SOCKS5: 10.0.0.1:5001 | HTTP: 10.0.0.1:8001 | ChangeIP: u",
		"SOCKS5: 10.0.0.1:bad:px1:secret | HTTP: 10.0.0.1:8001 | ChangeIP: u",
		"SOCKS5: 10.0.0.1:5001:px1:secret | HTTP: 10.0.0.1:bad | ChangeIP: u",
	}
	for _, input := range cases {
		if _, err := ParseProxyInput(input); err == nil {
			t.Errorf("ParseProxyInput(%q) succeeded, want error", input)
		}
	}
}

func TestFreeProxy(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")

	holder := int64(100)
	proxy := seedProxy(repo, "px1", false)
	proxy.UserTelegramID = &holder
	_ = repo.UpdateProxy(context.Background(), proxy, nil)

	svc := newTestService(repo, &fakeGateway{})

	if err := svc.FreeProxy(context.Background(), "px1", "newpass"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	freed, _ := repo.GetProxyByLogin(context.Background(), "px1")
	if !freed.IsFree || freed.UserTelegramID != nil || freed.ExpirationDate != nil {
		t.Errorf("proxy not released: %+v", freed)
	}
	if freed.Password != "newpass" {
		t.Errorf("password = %s, want newpass", freed.Password)
	}

	if err := svc.FreeProxy(context.Background(), "nope", "x"); err != ErrProxyNotFound {
		t.Errorf("err = %v, want ErrProxyNotFound", err)
	}
}

func TestGiveProxy(t *testing.T) {
	repo := newFakeRepo()
	seedUser(repo, 100, 0, "")
	seedProxy(repo, "px1", true)

	svc := newTestService(repo, &fakeGateway{})

	target, err := svc.GiveProxy(context.Background(), "px1", 100, 30)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if target.TelegramID != 100 {
		t.Errorf("target = %d, want 100", target.TelegramID)
	}

	given, _ := repo.GetProxyByLogin(context.Background(), "px1")
	if given.IsFree || given.UserTelegramID == nil || *given.UserTelegramID != 100 {
		t.Errorf("proxy not assigned: %+v", given)
	}

	if _, err := svc.GiveProxy(context.Background(), "px1", 100, 30); err != ErrProxyOccupied {
		t.Errorf("err = %v, want ErrProxyOccupied", err)
	}
	if _, err := svc.GiveProxy(context.Background(), "px1", 999, 30); err != ErrUserNotFound {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}
