package aggregator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// newTestServer returns a server that issues tokens and serves the given
// handler for all other paths, counting token endpoint hits.
func newTestServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *int, *int) {
	t.Helper()
	newCalls := 0
	refreshCalls := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case tokenNewPath:
			newCalls++
			json.NewEncoder(w).Encode(tokenPairResponse{
				Access:         "access-1",
				AccessExpires:  86400,
				Refresh:        "refresh-1",
				RefreshExpires: 2592000,
			})
		case tokenRefreshPath:
			refreshCalls++
			json.NewEncoder(w).Encode(tokenPairResponse{
				Access:        "access-2",
				AccessExpires: 86400,
			})
		default:
			handler(w, r)
		}
	}))

	return srv, &newCalls, &refreshCalls
}

func TestClient_AcquiresTokenOnce(t *testing.T) {
	srv, newCalls, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer access-1" {
			t.Errorf("Authorization = %q, want Bearer access-1", got)
		}
		json.NewEncoder(w).Encode([]Institution{{ID: "BANK_A", Name: "Bank A"}})
	})
	defer srv.Close()

	client := NewClient(srv.URL, "sid", "skey", 0)

	for i := 0; i < 3; i++ {
		if _, err := client.ListInstitutions(context.Background(), "GB"); err != nil {
			t.Fatalf("ListInstitutions() failed: %v", err)
		}
	}

	if *newCalls != 1 {
		t.Errorf("token/new calls = %d, want 1", *newCalls)
	}
}

func TestTokenManager_RefreshesExpiredAccess(t *testing.T) {
	srv, newCalls, refreshCalls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	defer srv.Close()

	client := NewClient(srv.URL, "sid", "skey", 0)
	if _, err := client.ListInstitutions(context.Background(), "GB"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	// Move time past the access expiry but within the refresh window.
	client.tokens.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	token, err := client.tokens.Token(context.Background())
	if err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if token != "access-2" {
		t.Errorf("token = %q, want access-2 (refreshed)", token)
	}
	if *refreshCalls != 1 {
		t.Errorf("token/refresh calls = %d, want 1", *refreshCalls)
	}
	if *newCalls != 1 {
		t.Errorf("token/new calls = %d, want 1", *newCalls)
	}
}

func TestTokenManager_NewPairWhenBothExpired(t *testing.T) {
	srv, newCalls, refreshCalls := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	defer srv.Close()

	client := NewClient(srv.URL, "sid", "skey", 0)
	if _, err := client.ListInstitutions(context.Background(), "GB"); err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	// Move time past both the access and the refresh expiry.
	client.tokens.now = func() time.Time { return time.Now().Add(31 * 24 * time.Hour) }

	if _, err := client.tokens.Token(context.Background()); err != nil {
		t.Fatalf("Token() failed: %v", err)
	}
	if *newCalls != 2 {
		t.Errorf("token/new calls = %d, want 2", *newCalls)
	}
	if *refreshCalls != 0 {
		t.Errorf("token/refresh calls = %d, want 0", *refreshCalls)
	}
}

func TestClient_UnauthorizedMapsToSentinel(t *testing.T) {
	srv, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	defer srv.Close()

	client := NewClient(srv.URL, "sid", "skey", 0)

	_, err := client.GetAccountBalances(context.Background(), "acct-1")
	if !errors.Is(err, ErrUnauthorized) {
		t.Errorf("err = %v, want ErrUnauthorized", err)
	}
}

func TestClient_TransactionsDateFrom(t *testing.T) {
	var gotDateFrom string
	srv, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotDateFrom = r.URL.Query().Get("date_from")
		json.NewEncoder(w).Encode(transactionsEnvelope{
			Transactions: TransactionPage{
				Booked: []Transaction{{TransactionID: "tx-1"}},
			},
		})
	})
	defer srv.Close()

	client := NewClient(srv.URL, "sid", "skey", 0)

	page, err := client.GetAccountTransactions(context.Background(), "acct-1", "2026-08-01")
	if err != nil {
		t.Fatalf("GetAccountTransactions() failed: %v", err)
	}
	if gotDateFrom != "2026-08-01" {
		t.Errorf("date_from = %q, want 2026-08-01", gotDateFrom)
	}
	if len(page.Booked) != 1 {
		t.Errorf("booked len = %d, want 1", len(page.Booked))
	}
}

func TestClient_ErrorEnvelope(t *testing.T) {
	srv, _, _ := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(errorResponse{
			Summary: "requisition conflict",
			Detail:  "requisition already exists",
		})
	})
	defer srv.Close()

	client := NewClient(srv.URL, "sid", "skey", 0)

	_, err := client.CreateRequisition(context.Background(), RequisitionParams{InstitutionID: "BANK_A"})
	if err == nil {
		t.Fatal("CreateRequisition() expected error, got nil")
	}
}

func TestAmountValue_Decimal(t *testing.T) {
	tests := []struct {
		amount  string
		want    string
		wantErr bool
	}{
		{"123.45", "123.45", false},
		{"-12.00", "-12", false},
		{"", "0", false},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			d, err := AmountValue{Amount: tt.amount}.Decimal()
			if tt.wantErr {
				if err == nil {
					t.Errorf("Decimal(%q) expected error, got nil", tt.amount)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decimal(%q) failed: %v", tt.amount, err)
			}
			if d.String() != tt.want {
				t.Errorf("Decimal(%q) = %s, want %s", tt.amount, d.String(), tt.want)
			}
		})
	}
}
