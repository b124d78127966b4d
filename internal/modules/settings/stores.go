package settings

import (
	"errors"
	"fmt"
	"strings"
)

const (
	MaxAdditionalStores = 5
	DefaultSyncDays     = 30
	MainStoreName       = "Store 1 (Main)"
)

var (
	ErrNoStores      = errors.New("no Shopify stores configured")
	ErrMissingTag    = errors.New("sales order tag not configured")
	ErrTooManyStores = fmt.Errorf("at most %d additional stores are supported", MaxAdditionalStores)
)

// StoreConfig is a resolved, complete set of credentials for one store.
type StoreConfig struct {
	Name        string `json:"name"`
	BaseURL     string `json:"base_url"`
	AccessToken string `json:"-"`
	LocationID  string `json:"location_id,omitempty"`
}

// ResolveStores returns the main store followed by the additional slots in
// ascending order. Slots missing either a URL or a token are skipped but keep
// their number, so slot 0 is always "Store 2".
func ResolveStores(s *Settings) ([]StoreConfig, error) {
	var stores []StoreConfig
	if main, ok := s.MainStore(); ok {
		stores = append(stores, main)
	}
	for i, c := range s.AdditionalStores {
		if i >= MaxAdditionalStores {
			break
		}
		url, token := normalizeURL(c.URL), strings.TrimSpace(c.Token)
		if url == "" || token == "" {
			continue
		}
		stores = append(stores, StoreConfig{
			Name:        fmt.Sprintf("Store %d", i+2),
			BaseURL:     url,
			AccessToken: token,
			LocationID:  strings.TrimSpace(c.LocationID),
		})
	}
	if len(stores) == 0 {
		return nil, ErrNoStores
	}
	return stores, nil
}

func (s *Settings) MainStore() (StoreConfig, bool) {
	url, token := normalizeURL(s.ShopifyStoreURL), strings.TrimSpace(s.ShopifyAccessToken)
	if url == "" || token == "" {
		return StoreConfig{}, false
	}
	return StoreConfig{
		Name:        MainStoreName,
		BaseURL:     url,
		AccessToken: token,
		LocationID:  strings.TrimSpace(s.ShopifyLocationID),
	}, true
}

func (s *Settings) SalesTag() (string, error) {
	tag := strings.TrimSpace(s.SalesOrderTag)
	if tag == "" {
		return "", ErrMissingTag
	}
	return tag, nil
}

func (s *Settings) SyncDays() int {
	if s.SalesSyncDays < 1 {
		return DefaultSyncDays
	}
	return s.SalesSyncDays
}

// ExcludedPrefixes splits excluded_skus on commas and newlines.
func (s *Settings) ExcludedPrefixes() []string {
	fields := strings.FieldsFunc(s.ExcludedSKUs, func(r rune) bool { return r == ',' || r == '\n' })
	var out []string
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

func normalizeURL(u string) string {
	return strings.TrimRight(strings.TrimSpace(u), "/")
}
