package domain

const (
	DefaultPage           = 1
	DefaultMessagePerPage = 50
)

type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

// Page is the envelope every list endpoint answers with.
type Page[T any] struct {
	Items      []T        `json:"items"`
	Pagination Pagination `json:"pagination"`
}

// HasNext reports whether a further page exists after this one.
func (p Page[T]) HasNext() bool {
	return p.Pagination.Page < p.Pagination.Pages
}

// NormalizePage applies the defaults used when a caller passes zero values.
func NormalizePage(page, perPage, defaultPerPage int) (int, int) {
	if page <= 0 {
		page = DefaultPage
	}
	if perPage <= 0 {
		perPage = defaultPerPage
	}
	return page, perPage
}
