package rooms

import (
	"fmt"
	"sync"
)

const maxCodeAttempts = 10

type Store struct {
	mu         sync.Mutex
	rooms      map[string]*Room
	codeLength int
	chatLimit  int
	generate   func(length int) (string, error)
}

func NewStore(codeLength, chatLimit int) *Store {
	return &Store{
		rooms:      make(map[string]*Room),
		codeLength: codeLength,
		chatLimit:  chatLimit,
		generate:   GenerateCode,
	}
}

// Create registers an empty WAITING room under a fresh code, re-rolling
// codes already in use.
func (s *Store) Create() (*Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for range maxCodeAttempts {
		code, err := s.generate(s.codeLength)
		if err != nil {
			return nil, fmt.Errorf("generating room code: %w", err)
		}
		if _, exists := s.rooms[code]; exists {
			continue
		}

		room := newRoom(code, s.chatLimit)
		s.rooms[code] = room
		return room, nil
	}
	return nil, fmt.Errorf("failed to generate unique room code after %d attempts", maxCodeAttempts)
}

func (s *Store) Get(code string) *Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rooms[code]
}

func (s *Store) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, code)
}

func (s *Store) List() []*Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := make([]*Room, 0, len(s.rooms))
	for _, r := range s.rooms {
		list = append(list, r)
	}
	return list
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rooms)
}
