// Package aggregator is the HTTP client for the open-banking data provider.
package aggregator

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"
)

const (
	defaultTimeout = 30 * time.Second

	institutionsPath = "/institutions/"
	requisitionsPath = "/requisitions/"
	accountsPath     = "/accounts/"
)

// Requisition statuses returned by the aggregator.
const (
	RequisitionCreated = "CR"
	RequisitionLinked  = "LN"
	RequisitionExpired = "EX"
)

// ErrUnauthorized is returned when the aggregator rejects our credentials.
// Callers surface it as an upstream auth failure, never retried.
var ErrUnauthorized = errors.New("aggregator rejected credentials")

// ErrNotFound is returned when the aggregator has no resource for the id.
var ErrNotFound = errors.New("aggregator resource not found")

// Client handles communication with the aggregator REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	tokens     *TokenManager
}

// NewClient creates an aggregator client. Every request carries a bearer
// token obtained (and refreshed) by the token manager.
func NewClient(baseURL, secretID, secretKey string, timeout time.Duration) *Client {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	httpClient := &http.Client{Timeout: timeout}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		tokens:     NewTokenManager(httpClient, baseURL, secretID, secretKey),
	}
}

// Institution is a bank in the aggregator's directory.
type Institution struct {
	ID                   string   `json:"id"`
	Name                 string   `json:"name"`
	BIC                  string   `json:"bic"`
	TransactionTotalDays string   `json:"transaction_total_days"`
	Countries            []string `json:"countries"`
	Logo                 string   `json:"logo"`
}

// RequisitionParams creates a new consent for an institution.
type RequisitionParams struct {
	Redirect      string `json:"redirect"`
	InstitutionID string `json:"institution_id"`
	Reference     string `json:"reference"`
}

// Requisition is a time-boxed consent linking a user's bank to the aggregator.
type Requisition struct {
	ID            string   `json:"id"`
	Status        string   `json:"status"`
	InstitutionID string   `json:"institution_id"`
	Reference     string   `json:"reference"`
	Accounts      []string `json:"accounts"`
	Link          string   `json:"link"`
}

// AccountDetails is the detail snapshot of a single remote account.
type AccountDetails struct {
	ResourceID string `json:"resourceId"`
	IBAN       string `json:"iban"`
	Currency   string `json:"currency"`
	OwnerName  string `json:"ownerName"`
	Name       string `json:"name"`
	Product    string `json:"product"`
}

type accountDetailsEnvelope struct {
	Account AccountDetails `json:"account"`
}

// AmountValue is the aggregator's {amount, currency} pair; amounts arrive
// as strings and are parsed on demand.
type AmountValue struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}

// Decimal parses the string amount.
func (a AmountValue) Decimal() (decimal.Decimal, error) {
	if a.Amount == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(a.Amount)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse amount %q: %w", a.Amount, err)
	}
	return d, nil
}

// Balance is one balance entry for an account.
type Balance struct {
	BalanceAmount AmountValue `json:"balanceAmount"`
	BalanceType   string      `json:"balanceType"`
	ReferenceDate string      `json:"referenceDate"`
}

type balancesEnvelope struct {
	Balances []Balance `json:"balances"`
}

// Transaction is a remote transaction row. TransactionID may be empty for
// some institutions; callers must fall back to a synthetic identifier.
type Transaction struct {
	TransactionID                     string      `json:"transactionId"`
	InternalTransactionID             string      `json:"internalTransactionId"`
	BookingDate                       string      `json:"bookingDate"`
	ValueDate                         string      `json:"valueDate"`
	TransactionAmount                 AmountValue `json:"transactionAmount"`
	CreditorName                      string      `json:"creditorName"`
	DebtorName                        string      `json:"debtorName"`
	RemittanceInformationUnstructured string      `json:"remittanceInformationUnstructured"`
}

// GetBookingDate parses the booking date (YYYY-MM-DD).
func (t *Transaction) GetBookingDate() (*time.Time, error) {
	return parseDate(t.BookingDate)
}

// GetValueDate parses the value date (YYYY-MM-DD).
func (t *Transaction) GetValueDate() (*time.Time, error) {
	return parseDate(t.ValueDate)
}

func parseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("failed to parse date %q: %w", s, err)
	}
	return &parsed, nil
}

// TransactionPage holds booked and pending transactions for one account.
type TransactionPage struct {
	Booked  []Transaction `json:"booked"`
	Pending []Transaction `json:"pending"`
}

type transactionsEnvelope struct {
	Transactions TransactionPage `json:"transactions"`
}

// errorResponse is the aggregator's error envelope.
type errorResponse struct {
	Summary    string `json:"summary"`
	Detail     string `json:"detail"`
	StatusCode int    `json:"status_code"`
}

// ListInstitutions returns the bank directory for a country.
func (c *Client) ListInstitutions(ctx context.Context, country string) ([]Institution, error) {
	path := institutionsPath + "?country=" + url.QueryEscape(country)

	var institutions []Institution
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &institutions); err != nil {
		return nil, err
	}
	return institutions, nil
}

// GetInstitution returns a single institution by id.
func (c *Client) GetInstitution(ctx context.Context, id string) (*Institution, error) {
	var institution Institution
	if err := c.doJSON(ctx, http.MethodGet, institutionsPath+url.PathEscape(id)+"/", nil, &institution); err != nil {
		return nil, err
	}
	return &institution, nil
}

// CreateRequisition creates a new consent and returns its authorization link.
func (c *Client) CreateRequisition(ctx context.Context, params RequisitionParams) (*Requisition, error) {
	var req Requisition
	if err := c.doJSON(ctx, http.MethodPost, requisitionsPath, params, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequisition returns the current state of a consent.
func (c *Client) GetRequisition(ctx context.Context, id string) (*Requisition, error) {
	var req Requisition
	if err := c.doJSON(ctx, http.MethodGet, requisitionsPath+url.PathEscape(id)+"/", nil, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// DeleteRequisition revokes a consent.
func (c *Client) DeleteRequisition(ctx context.Context, id string) error {
	return c.doJSON(ctx, http.MethodDelete, requisitionsPath+url.PathEscape(id)+"/", nil, nil)
}

// GetAccountDetails fetches the detail snapshot for an account.
func (c *Client) GetAccountDetails(ctx context.Context, accountID string) (*AccountDetails, error) {
	var envelope accountDetailsEnvelope
	if err := c.doJSON(ctx, http.MethodGet, accountsPath+url.PathEscape(accountID)+"/details/", nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Account, nil
}

// GetAccountBalances fetches the current balances for an account.
func (c *Client) GetAccountBalances(ctx context.Context, accountID string) ([]Balance, error) {
	var envelope balancesEnvelope
	if err := c.doJSON(ctx, http.MethodGet, accountsPath+url.PathEscape(accountID)+"/balances/", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Balances, nil
}

// GetAccountTransactions fetches transactions for an account. When fromDate
// (YYYY-MM-DD) is non-empty only transactions on or after it are returned,
// bounding the volume fetched on incremental syncs.
func (c *Client) GetAccountTransactions(ctx context.Context, accountID string, fromDate string) (*TransactionPage, error) {
	path := accountsPath + url.PathEscape(accountID) + "/transactions/"
	if fromDate != "" {
		path += "?date_from=" + url.QueryEscape(fromDate)
	}

	var envelope transactionsEnvelope
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &envelope); err != nil {
		return nil, err
	}
	return &envelope.Transactions, nil
}

// doJSON performs an authenticated request and decodes the JSON response
// into out (skipped when out is nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return err
	}

	var reqBody io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("%w (status %d)", ErrUnauthorized, resp.StatusCode)
	}
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp errorResponse
		if err := json.Unmarshal(respBody, &errResp); err != nil {
			return fmt.Errorf("aggregator request failed with status %d: %s", resp.StatusCode, string(respBody))
		}
		return fmt.Errorf("aggregator error (status %d): %s - %s", resp.StatusCode, errResp.Summary, errResp.Detail)
	}

	if out == nil || len(respBody) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
