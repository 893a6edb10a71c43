package transaction

// DefaultPageSize is the fixed page size for transaction listings.
const DefaultPageSize = 10

// Page describes one slice of a transaction listing.
type Page struct {
	Items      []Transaction `json:"items"`
	Page       int           `json:"page"`
	PageSize   int           `json:"pageSize"`
	TotalItems int           `json:"totalItems"`
	TotalPages int           `json:"totalPages"`
}

// NormalizePage clamps a requested page number into the valid range for the
// given total. Pages are 1-based; anything below 1 becomes 1 and anything past
// the last page becomes the last page. An empty result set has one page.
func NormalizePage(requested, totalItems, pageSize int) (page, totalPages int) {
	totalPages = (totalItems + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	page = requested
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}
	return page, totalPages
}

// Offset converts a 1-based page number into a row offset.
func Offset(page, pageSize int) int {
	return (page - 1) * pageSize
}
