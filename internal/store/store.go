package store

import (
	"github.com/hashicorp/go-memdb"
	"github.com/jmcvetta/randutil"

	"impostor-server/internal/core"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	codeLength   = 4
)

// RoomStore maps 4-character room codes to live Room aggregates. The
// memdb insert/delete transactions are the only cross-room
// synchronization points; everything inside a Room is guarded by the
// room itself.
type RoomStore struct {
	db *memdb.MemDB
}

func New() (*RoomStore, error) {
	schema := &memdb.DBSchema{
		Tables: map[string]*memdb.TableSchema{
			"rooms": {
				Name: "rooms",
				Indexes: map[string]*memdb.IndexSchema{
					"id": {
						Name:    "id",
						Unique:  true,
						Indexer: &memdb.StringFieldIndex{Field: "Code"},
					},
				},
			},
		},
	}

	db, err := memdb.NewMemDB(schema)
	if err != nil {
		return nil, err
	}
	return &RoomStore{db: db}, nil
}

// GenerateCode samples codes until one is free among the live rooms.
func (s *RoomStore) GenerateCode() (string, error) {
	for {
		code, err := randutil.String(codeLength, codeAlphabet)
		if err != nil {
			return "", err
		}
		if s.Get(code) == nil {
			return code, nil
		}
	}
}

func (s *RoomStore) Create(room *core.Room) error {
	txn := s.db.Txn(true)
	if err := txn.Insert("rooms", room); err != nil {
		txn.Abort()
		return err
	}
	txn.Commit()
	return nil
}

func (s *RoomStore) Get(code string) *core.Room {
	txn := s.db.Txn(false)
	defer txn.Abort()

	raw, err := txn.First("rooms", "id", code)
	if err != nil || raw == nil {
		return nil
	}
	return raw.(*core.Room)
}

func (s *RoomStore) Delete(code string) {
	txn := s.db.Txn(true)
	_, _ = txn.DeleteAll("rooms", "id", code)
	txn.Commit()
}

// All returns every live room, in no particular order.
func (s *RoomStore) All() []*core.Room {
	txn := s.db.Txn(false)
	defer txn.Abort()

	it, err := txn.Get("rooms", "id")
	if err != nil {
		return nil
	}

	var rooms []*core.Room
	for raw := it.Next(); raw != nil; raw = it.Next() {
		rooms = append(rooms, raw.(*core.Room))
	}
	return rooms
}
