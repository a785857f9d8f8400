// Package listings holds the marketplace listing collection: an in-memory
// array of code listings mirrored to the persistence boundary as one JSON
// document under a fixed key.
package listings

import (
	"fmt"
	"strconv"
)

// StorageKey is the single key the whole collection is persisted under.
const StorageKey = "codeListings"

// Listing is a for-sale code record. Sold is set exactly once, together with
// Buyer; listings are never deleted.
type Listing struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Code        string `json:"code"`
	Price       string `json:"price"` // decimal string, whole-currency units
	Language    string `json:"language"`
	Seller      string `json:"seller"`
	Timestamp   int64  `json:"timestamp"` // epoch milliseconds
	Sold        bool   `json:"sold"`
	Buyer       string `json:"buyer,omitempty"`
}

// ValidationError reports a listing that failed field validation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func validate(l Listing) error {
	if l.Title == "" || l.Description == "" || l.Code == "" || l.Language == "" {
		return &ValidationError{Message: "please fill in all fields"}
	}
	if l.Seller == "" {
		return &ValidationError{Message: "listing has no seller address"}
	}
	price, err := strconv.ParseFloat(l.Price, 64)
	if err != nil || price <= 0 {
		return &ValidationError{Message: fmt.Sprintf("invalid price %q: must be a number greater than 0", l.Price)}
	}
	return nil
}
