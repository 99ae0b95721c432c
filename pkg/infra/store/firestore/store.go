// Package firestore provides the cloud-backed Release Store shared between
// users. Documents live in one collection keyed by lowercased demand ID.
package firestore

import (
	"context"
	"strings"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
)

// DefaultCollection is the collection used when none is configured.
const DefaultCollection = "releases"

type Store struct {
	client     *firestore.Client
	collection string
}

var _ interfaces.ReleaseStore = &Store{}

// New connects to Firestore. An empty databaseID selects the default
// database of the project.
func New(ctx context.Context, projectID, databaseID, collection string) (*Store, error) {
	if collection == "" {
		collection = DefaultCollection
	}

	var client *firestore.Client
	var err error
	if databaseID == "" {
		client, err = firestore.NewClient(ctx, projectID)
	} else {
		client, err = firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create Firestore client",
			goerr.V("project", projectID), goerr.V("database", databaseID))
	}

	return &Store{client: client, collection: collection}, nil
}

// Close releases the underlying gRPC connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) GetAll(ctx context.Context) ([]*model.Release, error) {
	iter := s.client.Collection(s.collection).Documents(ctx)
	defer iter.Stop()

	var out []*model.Release
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate releases")
		}

		var r model.Release
		if err := doc.DataTo(&r); err != nil {
			return nil, goerr.Wrap(err, "failed to decode release", goerr.V("doc", doc.Ref.ID))
		}
		out = append(out, &r)
	}
	return out, nil
}

func (s *Store) GetByDemandID(ctx context.Context, demandID string) (*model.Release, error) {
	doc, err := s.client.Collection(s.collection).Doc(strings.ToLower(demandID)).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, nil
	}
	if err != nil {
		return nil, goerr.Wrap(err, "failed to get release", goerr.V("demandId", demandID))
	}

	var r model.Release
	if err := doc.DataTo(&r); err != nil {
		return nil, goerr.Wrap(err, "failed to decode release", goerr.V("demandId", demandID))
	}
	return &r, nil
}

func (s *Store) Put(ctx context.Context, release *model.Release) error {
	if release == nil || release.DemandID == "" {
		return goerr.New("release has no demand ID")
	}

	_, err := s.client.Collection(s.collection).Doc(release.Key()).Set(ctx, release)
	if err != nil {
		return goerr.Wrap(err, "failed to store release", goerr.V("demandId", release.DemandID))
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, demandID string) error {
	_, err := s.client.Collection(s.collection).Doc(strings.ToLower(demandID)).Delete(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to delete release", goerr.V("demandId", demandID))
	}
	return nil
}

// Watch streams collection snapshots as change events until ctx ends.
func (s *Store) Watch(ctx context.Context) <-chan model.ChangeEvent {
	ch := make(chan model.ChangeEvent, 16)

	go func() {
		defer close(ch)

		snaps := s.client.Collection(s.collection).Snapshots(ctx)
		defer snaps.Stop()

		for {
			snap, err := snaps.Next()
			if err != nil {
				if status.Code(err) != codes.Canceled {
					ctxlog.From(ctx).Error("Firestore snapshot stream failed", "error", err)
				}
				return
			}

			for _, change := range snap.Changes {
				ev, ok := convertChange(ctx, change)
				if !ok {
					continue
				}
				select {
				case ch <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return ch
}

func convertChange(ctx context.Context, change firestore.DocumentChange) (model.ChangeEvent, bool) {
	switch change.Kind {
	case firestore.DocumentAdded, firestore.DocumentModified:
		var r model.Release
		if err := change.Doc.DataTo(&r); err != nil {
			ctxlog.From(ctx).Error("Failed to decode changed release",
				"doc", change.Doc.Ref.ID, "error", err)
			return model.ChangeEvent{}, false
		}
		return model.ChangeEvent{Kind: model.ChangePut, DemandID: r.DemandID, Release: &r}, true
	case firestore.DocumentRemoved:
		return model.ChangeEvent{Kind: model.ChangeDelete, DemandID: change.Doc.Ref.ID}, true
	default:
		return model.ChangeEvent{}, false
	}
}
