package settings

import "context"

// Repository persists the settings row.
type Repository interface {
	Get(ctx context.Context) (*Settings, error)
	Save(ctx context.Context, s *Settings) error
}
