package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"moneta/internal/domain/category"
	"moneta/internal/shared/middleware"
)

// MockCategoryRepo implements category.Repository for testing
type MockCategoryRepo struct {
	CreateFunc       func(ctx context.Context, userID int64, params category.CreateCategoryParams) (*category.Category, error)
	GetByIDFunc      func(ctx context.Context, id int64) (*category.Category, error)
	ListByUserIDFunc func(ctx context.Context, userID int64) ([]*category.Category, error)
	UpdateFunc       func(ctx context.Context, id int64, params category.UpdateCategoryParams) (*category.Category, error)
	DeleteFunc       func(ctx context.Context, id int64) error
}

func (m *MockCategoryRepo) Create(ctx context.Context, userID int64, params category.CreateCategoryParams) (*category.Category, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, userID, params)
	}
	return nil, nil
}

func (m *MockCategoryRepo) GetByID(ctx context.Context, id int64) (*category.Category, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, category.ErrCategoryNotFound
}

func (m *MockCategoryRepo) ListByUserID(ctx context.Context, userID int64) ([]*category.Category, error) {
	if m.ListByUserIDFunc != nil {
		return m.ListByUserIDFunc(ctx, userID)
	}
	return nil, nil
}

func (m *MockCategoryRepo) Update(ctx context.Context, id int64, params category.UpdateCategoryParams) (*category.Category, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, params)
	}
	return nil, nil
}

func (m *MockCategoryRepo) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return nil
}

func authedRequest(method, target string, body []byte) *http.Request {
	var req *http.Request
	if body != nil {
		req, _ = http.NewRequest(method, target, bytes.NewReader(body))
	} else {
		req, _ = http.NewRequest(method, target, nil)
	}
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, int64(1))
	return req.WithContext(ctx)
}

func TestHandleCategories_Create(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		mockRepo       func() *MockCategoryRepo
		expectedStatus int
	}{
		{
			name: "Success",
			body: `{"name":"Groceries","color":"#22cc88","keywords":["tesco","aldi"]}`,
			mockRepo: func() *MockCategoryRepo {
				return &MockCategoryRepo{
					CreateFunc: func(ctx context.Context, userID int64, params category.CreateCategoryParams) (*category.Category, error) {
						return &category.Category{ID: 1, UserID: userID, Name: params.Name, Keywords: params.Keywords}, nil
					},
				}
			},
			expectedStatus: http.StatusCreated,
		},
		{
			name: "Duplicate Name",
			body: `{"name":"Groceries"}`,
			mockRepo: func() *MockCategoryRepo {
				return &MockCategoryRepo{
					CreateFunc: func(ctx context.Context, userID int64, params category.CreateCategoryParams) (*category.Category, error) {
						return nil, category.ErrDuplicateName
					},
				}
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name:           "Blank Keyword Rejected",
			body:           `{"name":"Groceries","keywords":["  "]}`,
			mockRepo:       func() *MockCategoryRepo { return &MockCategoryRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "Missing Name",
			body:           `{"color":"#fff"}`,
			mockRepo:       func() *MockCategoryRepo { return &MockCategoryRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCategoryHandler(tt.mockRepo())

			req := authedRequest(http.MethodPost, "/api/categories/", []byte(tt.body))
			rr := httptest.NewRecorder()
			handler.HandleCategories(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleCategories_List(t *testing.T) {
	repo := &MockCategoryRepo{
		ListByUserIDFunc: func(ctx context.Context, userID int64) ([]*category.Category, error) {
			return []*category.Category{
				{ID: 1, Name: "Groceries", Keywords: []string{"tesco"}},
				{ID: 2, Name: "Transport"},
			}, nil
		},
	}
	handler := NewCategoryHandler(repo)

	req := authedRequest(http.MethodGet, "/api/categories/", nil)
	rr := httptest.NewRecorder()
	handler.HandleCategories(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var got []category.Category
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("len = %d, want 2", len(got))
	}
}

func TestHandleCategoryByID_Delete(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		mockRepo       func() *MockCategoryRepo
		expectedStatus int
	}{
		{
			name:   "Success",
			target: "/api/categories/5",
			mockRepo: func() *MockCategoryRepo {
				return &MockCategoryRepo{
					GetByIDFunc: func(ctx context.Context, id int64) (*category.Category, error) {
						return &category.Category{ID: id, UserID: 1, Name: "Groceries"}, nil
					},
				}
			},
			expectedStatus: http.StatusNoContent,
		},
		{
			name:   "Not Owned",
			target: "/api/categories/5",
			mockRepo: func() *MockCategoryRepo {
				return &MockCategoryRepo{
					GetByIDFunc: func(ctx context.Context, id int64) (*category.Category, error) {
						return &category.Category{ID: id, UserID: 99, Name: "Groceries"}, nil
					},
				}
			},
			expectedStatus: http.StatusForbidden,
		},
		{
			name:   "Not Found",
			target: "/api/categories/5",
			mockRepo: func() *MockCategoryRepo {
				return &MockCategoryRepo{
					GetByIDFunc: func(ctx context.Context, id int64) (*category.Category, error) {
						return nil, category.ErrCategoryNotFound
					},
				}
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "Invalid ID",
			target:         "/api/categories/abc",
			mockRepo:       func() *MockCategoryRepo { return &MockCategoryRepo{} },
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewCategoryHandler(tt.mockRepo())

			mux := http.NewServeMux()
			mux.HandleFunc("/api/categories/{id}", handler.HandleCategoryByID)

			req := authedRequest(http.MethodDelete, tt.target, nil)
			rr := httptest.NewRecorder()
			mux.ServeHTTP(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
		})
	}
}

func TestHandleCategoryByID_UpdateDuplicate(t *testing.T) {
	repo := &MockCategoryRepo{
		GetByIDFunc: func(ctx context.Context, id int64) (*category.Category, error) {
			return &category.Category{ID: id, UserID: 1, Name: "Groceries"}, nil
		},
		UpdateFunc: func(ctx context.Context, id int64, params category.UpdateCategoryParams) (*category.Category, error) {
			return nil, category.ErrDuplicateName
		},
	}
	handler := NewCategoryHandler(repo)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/categories/{id}", handler.HandleCategoryByID)

	req := authedRequest(http.MethodPut, "/api/categories/5", []byte(`{"name":"Transport"}`))
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rr.Code)
	}
}

func TestHandleCategories_Unauthorized(t *testing.T) {
	handler := NewCategoryHandler(&MockCategoryRepo{})

	req, _ := http.NewRequest(http.MethodGet, "/api/categories/", nil)
	rr := httptest.NewRecorder()
	handler.HandleCategories(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rr.Code)
	}
}

var errDB = errors.New("db error")

func TestHandleCategories_ListError(t *testing.T) {
	repo := &MockCategoryRepo{
		ListByUserIDFunc: func(ctx context.Context, userID int64) ([]*category.Category, error) {
			return nil, errDB
		},
	}
	handler := NewCategoryHandler(repo)

	req := authedRequest(http.MethodGet, "/api/categories/", nil)
	rr := httptest.NewRecorder()
	handler.HandleCategories(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rr.Code)
	}
}
