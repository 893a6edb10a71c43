package transaction

import "testing"

func TestNormalizePage(t *testing.T) {
	tests := []struct {
		name       string
		requested  int
		totalItems int
		wantPage   int
		wantTotal  int
	}{
		{
			name:       "first page of several",
			requested:  1,
			totalItems: 25,
			wantPage:   1,
			wantTotal:  3,
		},
		{
			name:       "partial last page counts",
			requested:  3,
			totalItems: 25,
			wantPage:   3,
			wantTotal:  3,
		},
		{
			name:       "past the end clamps to last page",
			requested:  4,
			totalItems: 25,
			wantPage:   3,
			wantTotal:  3,
		},
		{
			name:       "zero clamps to first page",
			requested:  0,
			totalItems: 25,
			wantPage:   1,
			wantTotal:  3,
		},
		{
			name:       "negative clamps to first page",
			requested:  -5,
			totalItems: 25,
			wantPage:   1,
			wantTotal:  3,
		},
		{
			name:       "exact multiple has no extra page",
			requested:  2,
			totalItems: 20,
			wantPage:   2,
			wantTotal:  2,
		},
		{
			name:       "empty set still has one page",
			requested:  7,
			totalItems: 0,
			wantPage:   1,
			wantTotal:  1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, total := NormalizePage(tt.requested, tt.totalItems, DefaultPageSize)
			if page != tt.wantPage {
				t.Errorf("page = %d, want %d", page, tt.wantPage)
			}
			if total != tt.wantTotal {
				t.Errorf("totalPages = %d, want %d", total, tt.wantTotal)
			}
		})
	}
}

func TestOffset(t *testing.T) {
	if got := Offset(1, DefaultPageSize); got != 0 {
		t.Errorf("Offset(1) = %d, want 0", got)
	}
	if got := Offset(3, DefaultPageSize); got != 20 {
		t.Errorf("Offset(3) = %d, want 20", got)
	}
}

func TestUpdateParamsValidate(t *testing.T) {
	fixed := SpendingFixed
	bad := "luxury"

	tests := []struct {
		name    string
		params  UpdateParams
		wantErr bool
	}{
		{"empty is valid", UpdateParams{}, false},
		{"valid spending type", UpdateParams{SpendingType: &fixed}, false},
		{"invalid spending type", UpdateParams{SpendingType: &bad}, true},
		{"invalid want or need", UpdateParams{WantOrNeed: &bad}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.params.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
