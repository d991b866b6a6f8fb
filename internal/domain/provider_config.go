package domain

import (
	"fmt"
	"strings"
	"time"
)

// ProviderConfig identifies one vendor integration for a channel. The
// Credentials field always holds the encrypted blob; plaintext credentials
// never live on this struct.
//
// Invariant: at most one config per channel has IsActive set. Activation
// deactivates all siblings of the same channel in a single transaction.
type ProviderConfig struct {
	ID          string
	Channel     Channel
	Provider    string
	Name        string
	IsActive    bool
	Credentials string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (c *ProviderConfig) Validate() error {
	if c == nil {
		return fmt.Errorf("%w: provider config is required", ErrValidation)
	}
	if !c.Channel.IsValid() {
		return fmt.Errorf("%w: invalid channel %q", ErrValidation, c.Channel)
	}
	if strings.TrimSpace(c.Provider) == "" {
		return fmt.Errorf("%w: provider is required", ErrValidation)
	}
	return nil
}
