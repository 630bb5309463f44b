package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/boltdb/bolt"
	"github.com/hoshinonyaruko/stack-in-im/structs"
)

var resultBucket = []byte("result")

// Store 用 bolt 保存成绩：result 桶下每个玩家一个子桶，
// key 为 8 字节大端的时间戳加成绩 ID，游标倒序即新的在前
type Store struct {
	db *bolt.DB
}

func Open(p string) (*Store, error) {
	db, err := bolt.Open(p, 0666, nil)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(resultBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func encodeResultKey(r structs.GameResult) []byte {
	key := make([]byte, 8, 8+len(r.ID))
	binary.BigEndian.PutUint64(key, uint64(r.PlayedAt.UnixNano()))
	return append(key, r.ID...)
}

func (s *Store) SaveResult(ctx context.Context, result structs.GameResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.Bucket(resultBucket).CreateBucketIfNotExists([]byte(result.PlayerID))
		if err != nil {
			return fmt.Errorf("player bucket %s: %w", result.PlayerID, err)
		}
		return bkt.Put(encodeResultKey(result), value)
	})
}

func (s *Store) ResultsByPlayer(ctx context.Context, playerID string) ([]structs.GameResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var results []structs.GameResult
	err := s.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(resultBucket).Bucket([]byte(playerID))
		if bkt == nil {
			return nil
		}
		c := bkt.Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			var r structs.GameResult
			if err := json.Unmarshal(v, &r); err != nil {
				return fmt.Errorf("decode result %x: %w", k, err)
			}
			results = append(results, r)
		}
		return nil
	})
	return results, err
}

func (s *Store) Close() error {
	return s.db.Close()
}
