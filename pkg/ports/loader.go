package ports

import (
	"context"

	"github.com/aretw0/keel/pkg/domain"
)

// DescriptionSource defines how the Scene retrieves component descriptions.
// This allows the storage layer (files, memory, remote) to be decoupled.
type DescriptionSource interface {
	// Fetch returns the description stored under path.
	// It returns domain.ErrSourceNotFound if the path does not exist.
	Fetch(path string) (*domain.Description, error)

	// List returns every path the source can serve.
	List() ([]string, error)
}

// Watchable defines an interface for sources that can notify about backend changes.
// This is typically used to refresh components whose description was edited.
type Watchable interface {
	// Watch returns a channel that receives the path of each changed description.
	// The channel is closed when ctx is done.
	Watch(ctx context.Context) (<-chan string, error)
}
