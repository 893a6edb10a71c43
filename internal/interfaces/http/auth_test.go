package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"moneta/internal/domain/user"
	"moneta/internal/shared/auth"
)

// MockUserRepo implements user.Repository for testing
type MockUserRepo struct {
	CreateFunc        func(ctx context.Context, params user.CreateUserParams) (*user.User, error)
	GetByIDFunc       func(ctx context.Context, id int64) (*user.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*user.User, error)
	UpdateProfileFunc func(ctx context.Context, id int64, params user.UpdateProfileParams) (*user.User, error)
	ListFunc          func(ctx context.Context) ([]*user.User, error)
}

func (m *MockUserRepo) Create(ctx context.Context, params user.CreateUserParams) (*user.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*user.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepo) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepo) UpdateProfile(ctx context.Context, id int64, params user.UpdateProfileParams) (*user.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, id, params)
	}
	return nil, user.ErrUserNotFound
}

func (m *MockUserRepo) List(ctx context.Context) ([]*user.User, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx)
	}
	return nil, nil
}

// MockOAuthProvider implements auth.OAuthProvider for testing
type MockOAuthProvider struct {
	GetAuthURLFunc   func(state string) string
	ExchangeCodeFunc func(ctx context.Context, code string) (*auth.OAuthToken, error)
	GetUserInfoFunc  func(ctx context.Context, accessToken string) (*auth.OAuthUserInfo, error)
}

func (m *MockOAuthProvider) GetAuthURL(state string) string {
	if m.GetAuthURLFunc != nil {
		return m.GetAuthURLFunc(state)
	}
	return "https://accounts.example/authorize?state=" + state
}

func (m *MockOAuthProvider) ExchangeCode(ctx context.Context, code string) (*auth.OAuthToken, error) {
	if m.ExchangeCodeFunc != nil {
		return m.ExchangeCodeFunc(ctx, code)
	}
	return &auth.OAuthToken{AccessToken: "access-token"}, nil
}

func (m *MockOAuthProvider) GetUserInfo(ctx context.Context, accessToken string) (*auth.OAuthUserInfo, error) {
	if m.GetUserInfoFunc != nil {
		return m.GetUserInfoFunc(ctx, accessToken)
	}
	return &auth.OAuthUserInfo{ID: "g-1", Email: "known@example.com", Name: "Known User"}, nil
}

func testJWT() *auth.JWT {
	return auth.NewJWT("test-secret-key")
}

func TestHandleLogin(t *testing.T) {
	hash, _ := auth.HashPassword("correct horse")

	tests := []struct {
		name           string
		body           string
		mockRepo       func() *MockUserRepo
		expectedStatus int
	}{
		{
			name: "Success",
			body: `{"email":"a@example.com","password":"correct horse"}`,
			mockRepo: func() *MockUserRepo {
				return &MockUserRepo{
					GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
						return &user.User{ID: 1, Email: email, Name: "A", PasswordHash: &hash}, nil
					},
				}
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "Wrong Password",
			body: `{"email":"a@example.com","password":"wrong"}`,
			mockRepo: func() *MockUserRepo {
				return &MockUserRepo{
					GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
						return &user.User{ID: 1, Email: email, Name: "A", PasswordHash: &hash}, nil
					},
				}
			},
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "Unknown Email",
			body:           `{"email":"nobody@example.com","password":"whatever"}`,
			mockRepo:       func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name: "OAuth-Only Account",
			body: `{"email":"a@example.com","password":"whatever"}`,
			mockRepo: func() *MockUserRepo {
				return &MockUserRepo{
					GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
						return &user.User{ID: 1, Email: email, Name: "A"}, nil
					},
				}
			},
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing Fields",
			body:           `{"email":"a@example.com"}`,
			mockRepo:       func() *MockUserRepo { return &MockUserRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewAuthHandler(tt.mockRepo(), &MockOAuthProvider{}, testJWT())

			req := authedRequest(http.MethodPost, "/api/auth/login", []byte(tt.body))
			rr := httptest.NewRecorder()
			handler.HandleLogin(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}

			if tt.expectedStatus == http.StatusOK {
				var resp AuthResponse
				if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
					t.Fatalf("decode: %v", err)
				}
				if resp.Token == "" {
					t.Error("expected a token in the response")
				}

				cookies := rr.Result().Cookies()
				found := false
				for _, c := range cookies {
					if c.Name == "access_token" && c.HttpOnly {
						found = true
					}
				}
				if !found {
					t.Error("expected an HttpOnly access_token cookie")
				}
			}
		})
	}
}

func TestHandleCallback_AllowlistOnly(t *testing.T) {
	t.Run("unknown email is rejected", func(t *testing.T) {
		handler := NewAuthHandler(&MockUserRepo{}, &MockOAuthProvider{}, testJWT())

		req, _ := http.NewRequest(http.MethodGet, "/api/auth/callback?code=abc", nil)
		rr := httptest.NewRecorder()
		handler.HandleCallback(rr, req)

		if rr.Code != http.StatusForbidden {
			t.Errorf("status = %d, want 403", rr.Code)
		}
	})

	t.Run("known email signs in and refreshes profile", func(t *testing.T) {
		var updated bool
		repo := &MockUserRepo{
			GetByEmailFunc: func(ctx context.Context, email string) (*user.User, error) {
				return &user.User{ID: 7, Email: email, Name: "Old Name"}, nil
			},
			UpdateProfileFunc: func(ctx context.Context, id int64, params user.UpdateProfileParams) (*user.User, error) {
				updated = true
				return &user.User{ID: id, Email: "known@example.com", Name: *params.Name}, nil
			},
		}
		handler := NewAuthHandler(repo, &MockOAuthProvider{}, testJWT())

		req, _ := http.NewRequest(http.MethodGet, "/api/auth/callback?code=abc", nil)
		rr := httptest.NewRecorder()
		handler.HandleCallback(rr, req)

		if rr.Code != http.StatusFound {
			t.Fatalf("status = %d, want 302", rr.Code)
		}
		if !updated {
			t.Error("expected profile refresh from provider")
		}
	})

	t.Run("missing code", func(t *testing.T) {
		handler := NewAuthHandler(&MockUserRepo{}, &MockOAuthProvider{}, testJWT())

		req, _ := http.NewRequest(http.MethodGet, "/api/auth/callback", nil)
		rr := httptest.NewRecorder()
		handler.HandleCallback(rr, req)

		if rr.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rr.Code)
		}
	})
}

func TestHandleRegister_ShortPassword(t *testing.T) {
	handler := NewAuthHandler(&MockUserRepo{}, &MockOAuthProvider{}, testJWT())

	req := authedRequest(http.MethodPost, "/api/auth/register", []byte(`{"email":"a@example.com","password":"short","name":"A"}`))
	rr := httptest.NewRecorder()
	handler.HandleRegister(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rr.Code)
	}
}
