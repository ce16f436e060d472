package memory

import (
	"sync"

	"github.com/movieboxd/movieboxd/src/internal/domain"
)

type pairKey struct {
	userID string
	filmID string
}

type likeEntry struct {
	like domain.Like
	seq  int
}

// Store holds every in-memory table behind one mutex so multi-table
// operations such as list creation stay atomic.
type Store struct {
	mu sync.RWMutex

	users     map[string]domain.User
	userOrder []string

	films     map[string]domain.Film
	filmOrder []string

	watched map[pairKey]domain.Watched
	likes   map[pairKey]likeEntry
	lists   []domain.List

	seq int
}

func NewStore() *Store {
	return &Store{
		users:   make(map[string]domain.User),
		films:   make(map[string]domain.Film),
		watched: make(map[pairKey]domain.Watched),
		likes:   make(map[pairKey]likeEntry),
	}
}

func (s *Store) nextSeq() int {
	s.seq++
	return s.seq
}

func (s *Store) Users() *InMemoryUserRepo      { return &InMemoryUserRepo{s: s} }
func (s *Store) Films() *InMemoryFilmRepo      { return &InMemoryFilmRepo{s: s} }
func (s *Store) Watched() *InMemoryWatchedRepo { return &InMemoryWatchedRepo{s: s} }
func (s *Store) Likes() *InMemoryLikeRepo      { return &InMemoryLikeRepo{s: s} }
func (s *Store) Lists() *InMemoryListRepo      { return &InMemoryListRepo{s: s} }
