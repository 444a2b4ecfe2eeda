// internal/infra/firestore/client.go
package firestoreinfra

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

// ClientWrapper bundles the Firestore client with its project binding.
type ClientWrapper struct {
	Client    *firestore.Client
	ProjectID string
}

// NewClient opens a Firestore client. An empty credentialsFile means ADC.
func NewClient(ctx context.Context, projectID, credentialsFile string, log *logrus.Logger) (*ClientWrapper, error) {
	var (
		client *firestore.Client
		err    error
	)
	if credentialsFile != "" {
		client, err = firestore.NewClient(ctx, projectID, option.WithCredentialsFile(credentialsFile))
	} else {
		client, err = firestore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}

	if log != nil {
		log.WithField("project", projectID).Info("firestore connected")
	}
	return &ClientWrapper{Client: client, ProjectID: projectID}, nil
}

// Ping exercises a cheap read because Firestore has no ping API.
func (cw *ClientWrapper) Ping(ctx context.Context) error {
	if cw == nil || cw.Client == nil {
		return fmt.Errorf("firestore client is nil")
	}
	if _, err := cw.Client.Collections(ctx).GetAll(); err != nil {
		return fmt.Errorf("firestore ping failed: %w", err)
	}
	return nil
}

func (cw *ClientWrapper) Close() error {
	if cw == nil || cw.Client == nil {
		return nil
	}
	return cw.Client.Close()
}
