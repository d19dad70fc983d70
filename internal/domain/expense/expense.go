package expense

import (
	"errors"
	"fmt"
	"time"
)

// Category is the fixed set shared between client and server validation.
type Category string

const (
	CategoryFood           Category = "food"
	CategoryTransportation Category = "transportation"
	CategoryEntertainment  Category = "entertainment"
	CategoryUtilities      Category = "utilities"
	CategoryHousing        Category = "housing"
	CategoryHealthcare     Category = "healthcare"
	CategoryEducation      Category = "education"
	CategoryOther          Category = "other"
)

func Categories() []Category {
	return []Category{
		CategoryFood,
		CategoryTransportation,
		CategoryEntertainment,
		CategoryUtilities,
		CategoryHousing,
		CategoryHealthcare,
		CategoryEducation,
		CategoryOther,
	}
}

func (c Category) Valid() bool {
	switch c {
	case CategoryFood, CategoryTransportation, CategoryEntertainment,
		CategoryUtilities, CategoryHousing, CategoryHealthcare,
		CategoryEducation, CategoryOther:
		return true
	}
	return false
}

type Expense struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Amount    float64   `json:"amount"`
	Category  Category  `json:"category"`
	Date      time.Time `json:"date"`
	OwnerID   string    `json:"ownerId"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var ErrNotFound = errors.New("expense not found")

// Date accepts both plain "2006-01-02" dates (what the dashboard form posts)
// and RFC 3339 timestamps. It marshals back as RFC 3339.
type Date struct {
	time.Time
}

var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := string(b)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("date must be a string")
	}
	s = s[1 : len(s)-1]

	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			d.Time = t
			return nil
		}
	}

	return fmt.Errorf("date %q is not in YYYY-MM-DD or RFC 3339 format", s)
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return []byte(`"` + d.UTC().Format(time.RFC3339) + `"`), nil
}

// Amount and Date are pointers so that 0 and an absent field stay
// distinguishable under the required rule.
type CreateExpenseRequest struct {
	Title    string   `json:"title" binding:"required,notblank,max=120"`
	Amount   *float64 `json:"amount" binding:"required"`
	Category Category `json:"category" binding:"required,oneof=food transportation entertainment utilities housing healthcare education other"`
	Date     *Date    `json:"date" binding:"required"`
}

// Full field replacement, same constraints as create.
type UpdateExpenseRequest struct {
	Title    string   `json:"title" binding:"required,notblank,max=120"`
	Amount   *float64 `json:"amount" binding:"required"`
	Category Category `json:"category" binding:"required,oneof=food transportation entertainment utilities housing healthcare education other"`
	Date     *Date    `json:"date" binding:"required"`
}

type CategoryTotal struct {
	Category Category `json:"_id"`
	Total    float64  `json:"total"`
}

type MonthKey struct {
	Year  int `json:"year"`
	Month int `json:"month"`
}

type MonthTotal struct {
	Bucket MonthKey `json:"_id"`
	Total  float64  `json:"total"`
}

// Stats is recomputed on every call, never cached.
type Stats struct {
	Total      float64         `json:"total"`
	ByCategory []CategoryTotal `json:"byCategory"`
	ByMonth    []MonthTotal    `json:"byMonth"`
}
