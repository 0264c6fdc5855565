package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Money goes over the wire as a JSON number. Decoding accepts numbers and
// quoted strings alike.
func init() { decimal.MarshalJSONWithoutQuotes = true }

type Product struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
	Stock int             `json:"stock"`
}

type Address struct {
	Number  string `json:"number"`
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	Country string `json:"country"`
	ZipCode string `json:"zipCode"`
}

type Client struct {
	FullName    string  `json:"fullName"`
	Email       string  `json:"email"`
	PhoneNumber string  `json:"phoneNumber"`
	Address     Address `json:"address"`
}

type OrderLine struct {
	ProductID int64           `json:"idFunko"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

type Order struct {
	ID         string          `json:"id"`
	ClientID   string          `json:"idClient"`
	Client     Client          `json:"client"`
	Lines      []OrderLine     `json:"orderLines"`
	TotalItems int             `json:"totalItems"`
	Total      decimal.Decimal `json:"total"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	IsDeleted  bool            `json:"isDeleted"`
}

// ProductIDs returns the distinct product ids referenced by the order's lines.
func (o Order) ProductIDs() []int64 {
	seen := make(map[int64]struct{}, len(o.Lines))
	out := make([]int64, 0, len(o.Lines))
	for _, l := range o.Lines {
		if _, ok := seen[l.ProductID]; ok {
			continue
		}
		seen[l.ProductID] = struct{}{}
		out = append(out, l.ProductID)
	}
	return out
}

// LineInput: totals sent by the client are accepted for wire compatibility but ignored.
type LineInput struct {
	ProductID int64           `json:"idFunko"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total,omitempty"`
}

type OrderInput struct {
	ClientID   string          `json:"idClient"`
	Client     Client          `json:"client"`
	Lines      []LineInput     `json:"orderLines"`
	TotalItems int             `json:"totalItems,omitempty"`
	Total      decimal.Decimal `json:"total,omitempty"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

type PageQuery struct {
	Page      int
	Limit     int
	IsDeleted bool
}

// Normalize applies the default page/limit and caps the limit.
func (q PageQuery) Normalize() PageQuery {
	if q.Page < 1 {
		q.Page = DefaultPage
	}
	if q.Limit < 1 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

func (q PageQuery) Offset() int { return (q.Page - 1) * q.Limit }

type PageMeta struct {
	TotalItems   int `json:"totalItems"`
	ItemCount    int `json:"itemCount"`
	ItemsPerPage int `json:"itemsPerPage"`
	TotalPages   int `json:"totalPages"`
	CurrentPage  int `json:"currentPage"`
}

type Page struct {
	Items []Order  `json:"items"`
	Meta  PageMeta `json:"meta"`
}

// NewPage builds the page envelope for items fetched with q out of total matches.
func NewPage(items []Order, total int, q PageQuery) Page {
	if items == nil {
		items = []Order{}
	}
	pages := 0
	if q.Limit > 0 {
		pages = (total + q.Limit - 1) / q.Limit
	}
	return Page{
		Items: items,
		Meta: PageMeta{
			TotalItems:   total,
			ItemCount:    len(items),
			ItemsPerPage: q.Limit,
			TotalPages:   pages,
			CurrentPage:  q.Page,
		},
	}
}
