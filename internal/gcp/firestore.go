package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreStore persists extraction records as Firestore documents.
type FirestoreStore struct {
	client *firestore.Client
}

func NewFirestoreStore(ctx context.Context, projectID string) (*FirestoreStore, error) {
	client, err := NewFirestoreClient(ctx, projectID)
	if err != nil {
		return nil, err
	}
	return &FirestoreStore{client: client}, nil
}

// Insert creates collection/id with the given fields. It uses Create rather than
// Set, so an existing document is never overwritten.
func (s *FirestoreStore) Insert(ctx context.Context, collection, id string, record map[string]interface{}) error {
	if _, err := s.client.Collection(collection).Doc(id).Create(ctx, record); err != nil {
		return fmt.Errorf("failed to create document %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *FirestoreStore) Close() error {
	return s.client.Close()
}
