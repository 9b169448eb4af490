package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/ShakerUp/tg-bot-sproxy/utils"
)

// Error означает, что платёжный шлюз недоступен или вернул
// неожиданный ответ. Для опроса статуса это "нет новой информации",
// а не ошибка самой транзакции.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("gateway: status %d: %s", e.StatusCode, e.Message)
}

type Invoice struct {
	InvoiceID string `json:"invoiceId"`
	PageURL   string `json:"pageUrl"`
}

// Client реализует клиент merchant-API монобанка: создание счета и запрос его
// статуса. Состояния не хранит.
type Client struct {
	apiURL     string
	token      string
	httpClient *http.Client
	logger     *utils.Logger
}

func NewClient(apiURL, token string, logger *utils.Logger) *Client {
	return &Client{
		apiURL:     apiURL,
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

type createInvoiceRequest struct {
	Amount           int64  `json:"amount"`
	Ccy              int    `json:"ccy"`
	Validity         int    `json:"validity"`
	MerchantPaymInfo struct {
		Reference   string `json:"reference"`
		Destination string `json:"destination"`
	} `json:"merchantPaymInfo"`
}

func (c *Client) CreateInvoice(ctx context.Context, amount int64, currency, validity int, reference, destination string) (*Invoice, error) {
	reqBody := createInvoiceRequest{
		Amount:   amount,
		Ccy:      currency,
		Validity: validity,
	}
	reqBody.MerchantPaymInfo.Reference = reference
	reqBody.MerchantPaymInfo.Destination = destination

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal invoice request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+"/api/merchant/invoice/create", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build invoice request: %w", err)
	}
	req.Header.Set("X-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Message: fmt.Sprintf("create invoice request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		c.logger.Errorf("Gateway rejected invoice creation: %d %s", resp.StatusCode, string(body))
		return nil, &Error{StatusCode: resp.StatusCode, Message: "bad response on invoice create"}
	}

	var invoice Invoice
	if err := json.NewDecoder(resp.Body).Decode(&invoice); err != nil {
		return nil, &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to parse invoice response: %v", err)}
	}

	if invoice.InvoiceID == "" || invoice.PageURL == "" {
		return nil, &Error{StatusCode: resp.StatusCode, Message: "invoice response missing invoiceId or pageUrl"}
	}

	return &invoice, nil
}

func (c *Client) FetchStatus(ctx context.Context, invoiceID string) (string, error) {
	statusURL := fmt.Sprintf("%s/api/merchant/invoice/status?invoiceId=%s", c.apiURL, url.QueryEscape(invoiceID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statusURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build status request: %w", err)
	}
	req.Header.Set("X-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Message: fmt.Sprintf("status request failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{StatusCode: resp.StatusCode, Message: "bad response on invoice status"}
	}

	var data struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return "", &Error{StatusCode: resp.StatusCode, Message: fmt.Sprintf("failed to parse status response: %v", err)}
	}

	if data.Status == "" {
		return "", &Error{StatusCode: resp.StatusCode, Message: "status response missing status"}
	}

	return data.Status, nil
}
