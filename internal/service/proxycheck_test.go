package service

import (
	"context"
	"testing"

	"github.com/ShakerUp/tg-bot-sproxy/internal/models"
)

func TestCheckAllProxies(t *testing.T) {
	repo := newFakeRepo()
	seedProxy(repo, "px1", true)
	seedProxy(repo, "px2", false)

	svc := newTestService(repo, &fakeGateway{})
	svc.probeProxy = func(ctx context.Context, proxy *models.Proxy) bool {
		return proxy.Login == "px1"
	}

	results, err := svc.CheckAllProxies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("results = %d, want 2", len(results))
	}

	byLogin := make(map[string]bool, len(results))
	for _, result := range results {
		byLogin[result.Login] = result.OK
	}
	if !byLogin["px1"] {
		t.Error("px1 should be reported alive")
	}
	if byLogin["px2"] {
		t.Error("px2 should be reported dead")
	}
}

func TestCheckAllProxiesEmptyPool(t *testing.T) {
	repo := newFakeRepo()
	svc := newTestService(repo, &fakeGateway{})

	results, err := svc.CheckAllProxies(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("results = %d, want 0", len(results))
	}
}

func TestReferralBonusPercent(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeGateway{})
	if got := svc.ReferralBonusPercent(); got != 10 {
		t.Errorf("ReferralBonusPercent() = %d, want 10", got)
	}
}
