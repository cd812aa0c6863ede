// Package publish defines how generated dashboards leave the local disk.
package publish

import "context"

// ServiceName is the AppContext service name of the active Publisher.
const ServiceName = "publish.publisher"

// Publisher uploads local files into a remote directory, keeping their base names.
type Publisher interface {
	// Publish uploads files into remoteDir. An empty remoteDir selects the
	// publisher's configured default.
	Publish(ctx context.Context, remoteDir string, files []string) error
}

// Func adapts a function to the Publisher interface.
type Func func(ctx context.Context, remoteDir string, files []string) error

// Publish implements Publisher.
func (f Func) Publish(ctx context.Context, remoteDir string, files []string) error {
	return f(ctx, remoteDir, files)
}
