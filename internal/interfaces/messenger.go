package interfaces

import "context"

// Messenger delivers results back to the requester over the messaging
// channel. Image delivery is a two-step upload-then-reference protocol
// behind this interface.
type Messenger interface {
	SendText(ctx context.Context, destination, body string) error
	SendImage(ctx context.Context, destination, path, caption string) error
}
