package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ShakerUp/tg-bot-sproxy/utils"
)

func TestCreateInvoice(t *testing.T) {
	var gotToken string
	var gotBody createInvoiceRequest

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/merchant/invoice/create" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotToken = r.Header.Get("X-Token")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		json.NewEncoder(w).Encode(Invoice{InvoiceID: "inv-1", PageURL: "https://pay.example/inv-1"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "secret-token", utils.InitLogger())

	invoice, err := client.CreateInvoice(context.Background(), 2500, 840, 120, "ref", "dest")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if invoice.InvoiceID != "inv-1" || invoice.PageURL != "https://pay.example/inv-1" {
		t.Errorf("invoice = %+v", invoice)
	}
	if gotToken != "secret-token" {
		t.Errorf("X-Token = %q, want secret-token", gotToken)
	}
	if gotBody.Amount != 2500 || gotBody.Ccy != 840 || gotBody.Validity != 120 {
		t.Errorf("request body = %+v", gotBody)
	}
	if gotBody.MerchantPaymInfo.Reference != "ref" || gotBody.MerchantPaymInfo.Destination != "dest" {
		t.Errorf("merchantPaymInfo = %+v", gotBody.MerchantPaymInfo)
	}
}

func TestCreateInvoiceBadStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	}))
	defer server.Close()

	client := NewClient(server.URL, "token", utils.InitLogger())

	_, err := client.CreateInvoice(context.Background(), 100, 840, 120, "ref", "dest")

	var gwErr *Error
	if !errors.As(err, &gwErr) {
		t.Fatalf("err = %v, want *gateway.Error", err)
	}
	if gwErr.StatusCode != http.StatusForbidden {
		t.Errorf("status code = %d, want 403", gwErr.StatusCode)
	}
}

func TestCreateInvoiceIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(Invoice{InvoiceID: "inv-1"}) // без pageUrl
	}))
	defer server.Close()

	client := NewClient(server.URL, "token", utils.InitLogger())

	var gwErr *Error
	if _, err := client.CreateInvoice(context.Background(), 100, 840, 120, "ref", "dest"); !errors.As(err, &gwErr) {
		t.Fatalf("err = %v, want *gateway.Error", err)
	}
}

func TestFetchStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/merchant/invoice/status" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if got := r.URL.Query().Get("invoiceId"); got != "inv-1" {
			t.Errorf("invoiceId = %q, want inv-1", got)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "success"})
	}))
	defer server.Close()

	client := NewClient(server.URL, "token", utils.InitLogger())

	status, err := client.FetchStatus(context.Background(), "inv-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if status != "success" {
		t.Errorf("status = %q, want success", status)
	}
}

func TestFetchStatusUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // соединение будет отклонено

	client := NewClient(server.URL, "token", utils.InitLogger())

	var gwErr *Error
	if _, err := client.FetchStatus(context.Background(), "inv-1"); !errors.As(err, &gwErr) {
		t.Fatalf("err = %v, want *gateway.Error", err)
	}
}
