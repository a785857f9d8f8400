package listings

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/riyajainn01/CodeMarketPlace/pkg/kvstore"
)

var (
	ErrNotFound    = errors.New("listing not found")
	ErrAlreadySold = errors.New("this code has already been purchased")
)

// Store owns the listing collection. Every mutation re-reads the persisted
// collection, applies the change, and writes the whole array back, so two
// async flows can never clobber each other with stale partial state.
type Store struct {
	mu  sync.Mutex
	kv  kvstore.Store
	now func() time.Time
}

func NewStore(kv kvstore.Store) *Store {
	return &Store{kv: kv, now: time.Now}
}

// Load returns the persisted collection, seeding it with the example listings
// on first run.
func (s *Store) Load() ([]Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loadLocked()
}

// Get returns the listing with the given id.
func (s *Store) Get(id string) (Listing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return Listing{}, err
	}
	for _, l := range all {
		if l.ID == id {
			return l, nil
		}
	}
	return Listing{}, ErrNotFound
}

// Append validates the listing, assigns a time-based id and creation
// timestamp, and persists the extended collection.
func (s *Store) Append(l Listing) (Listing, error) {
	if err := validate(l); err != nil {
		return Listing{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return Listing{}, err
	}

	now := s.now()
	id := now.UnixMilli()
	for hasID(all, strconv.FormatInt(id, 10)) {
		id++
	}
	l.ID = strconv.FormatInt(id, 10)
	l.Timestamp = now.UnixMilli()
	l.Sold = false
	l.Buyer = ""

	all = append(all, l)
	if err := s.persistLocked(all); err != nil {
		return Listing{}, err
	}
	return l, nil
}

// MarkSold sets the sold flag and buyer on the listing and rewrites the whole
// collection. A listing is mutated at most once.
func (s *Store) MarkSold(id, buyer string) (Listing, error) {
	if buyer == "" {
		return Listing{}, &ValidationError{Message: "buyer address is required"}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.loadLocked()
	if err != nil {
		return Listing{}, err
	}
	for i := range all {
		if all[i].ID != id {
			continue
		}
		if all[i].Sold {
			return Listing{}, ErrAlreadySold
		}
		all[i].Sold = true
		all[i].Buyer = buyer
		if err := s.persistLocked(all); err != nil {
			return Listing{}, err
		}
		return all[i], nil
	}
	return Listing{}, ErrNotFound
}

func (s *Store) loadLocked() ([]Listing, error) {
	data, ok, err := s.kv.Get(StorageKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		seed := seedListings(s.now())
		if err := s.persistLocked(seed); err != nil {
			return nil, err
		}
		return seed, nil
	}
	var all []Listing
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("corrupt listing collection: %v", err)
	}
	return all, nil
}

func (s *Store) persistLocked(all []Listing) error {
	data, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return s.kv.Put(StorageKey, data)
}

func hasID(all []Listing, id string) bool {
	for _, l := range all {
		if l.ID == id {
			return true
		}
	}
	return false
}

// seedListings is the deterministic first-run collection shown before anyone
// lists their own code.
func seedListings(now time.Time) []Listing {
	ms := now.UnixMilli()
	const day = int64(24 * time.Hour / time.Millisecond)
	return []Listing{
		{
			ID:          "1",
			Title:       "React Authentication Hook",
			Description: "A custom hook for handling user authentication in React applications",
			Code:        "export function useAuth() {\n  const [user, setUser] = useState(null);\n  // More code here...\n  return { user, login, logout };\n}",
			Price:       "0.01",
			Language:    "javascript",
			Seller:      "0x1234...5678",
			Timestamp:   ms,
			Sold:        false,
		},
		{
			ID:          "2",
			Title:       "Smart Contract for NFT Marketplace",
			Description: "Solidity contract for creating and trading NFTs",
			Code:        "contract NFTMarketplace {\n  // Contract code here\n  function createToken() public {...}\n}",
			Price:       "0.05",
			Language:    "solidity",
			Seller:      "0x8765...4321",
			Timestamp:   ms - day,
			Sold:        false,
		},
		{
			ID:          "3",
			Title:       "Python Data Analysis Utility",
			Description: "Utility functions for data cleaning and visualization",
			Code:        "def clean_data(df):\n    # Remove duplicates\n    df = df.drop_duplicates()\n    # Handle missing values\n    df = df.fillna(0)\n    return df",
			Price:       "0.02",
			Language:    "python",
			Seller:      "0xabcd...1234",
			Timestamp:   ms - 2*day,
			Sold:        false,
		},
	}
}
