// Package memory provides the client-local Release Store: an in-process map
// keyed by lowercased demand ID with a change-notification stream.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/m-mizutani/drover/pkg/domain/interfaces"
	"github.com/m-mizutani/drover/pkg/domain/model"
)

type Store struct {
	mu       sync.RWMutex
	releases map[string]*model.Release
	watchers map[int]chan model.ChangeEvent
	nextID   int
}

var _ interfaces.ReleaseStore = &Store{}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		releases: make(map[string]*model.Release),
		watchers: make(map[int]chan model.ChangeEvent),
	}
}

func (s *Store) GetAll(_ context.Context) ([]*model.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.Release, 0, len(s.releases))
	for _, r := range s.releases {
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out, nil
}

func (s *Store) GetByDemandID(_ context.Context, demandID string) (*model.Release, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.releases[strings.ToLower(demandID)].Clone(), nil
}

func (s *Store) Put(_ context.Context, release *model.Release) error {
	if release == nil || release.DemandID == "" {
		return goerr.New("release has no demand ID")
	}

	stored := release.Clone()
	s.mu.Lock()
	s.releases[stored.Key()] = stored
	s.mu.Unlock()

	s.notify(model.ChangeEvent{Kind: model.ChangePut, DemandID: stored.DemandID, Release: stored.Clone()})
	return nil
}

func (s *Store) Delete(_ context.Context, demandID string) error {
	key := strings.ToLower(demandID)

	s.mu.Lock()
	_, existed := s.releases[key]
	delete(s.releases, key)
	s.mu.Unlock()

	if existed {
		s.notify(model.ChangeEvent{Kind: model.ChangeDelete, DemandID: demandID})
	}
	return nil
}

func (s *Store) Watch(ctx context.Context) <-chan model.ChangeEvent {
	ch := make(chan model.ChangeEvent, 16)

	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
		close(ch)
	}()

	return ch
}

// notify never blocks a writer: a watcher that stopped draining loses events
// rather than stalling the store.
func (s *Store) notify(ev model.ChangeEvent) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, ch := range s.watchers {
		select {
		case ch <- ev:
		default:
		}
	}
}
