package stores

import (
	"bytes"
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const tokenRecordVersionV1 = 1

var (
	// ErrNotFound means no active record matched: missing, expired,
	// blacklisted, or owned by someone else. Callers cannot tell which.
	ErrNotFound = errors.New("security token not found")

	// ErrRedisUnavailable wraps transport-level Redis failures.
	ErrRedisUnavailable = errors.New("token store redis unavailable")
)

// SecurityToken is one persisted token record. At most one active
// record exists per (value, type) pair; the storage key is derived
// from both, so a second Save with the same pair overwrites the first.
type SecurityToken struct {
	ID          string
	ValueHash   [32]byte
	Type        string
	OwnerID     string
	ExpiresAt   int64
	Blacklisted bool
}

// SecurityTokenStore persists token records in Redis with a TTL
// matching their expiry, plus a per-owner index set so all tokens of
// one type can be swept in a single call.
type SecurityTokenStore struct {
	redis  *redis.Client
	prefix string
}

func NewSecurityTokenStore(redisClient *redis.Client, prefix string) *SecurityTokenStore {
	if prefix == "" {
		prefix = "authkit"
	}
	return &SecurityTokenStore{
		redis:  redisClient,
		prefix: prefix,
	}
}

// HashValue derives the storage digest for a token value.
func HashValue(value string) [32]byte {
	return sha256.Sum256([]byte(value))
}

func (s *SecurityTokenStore) key(typ string, valueHash [32]byte) string {
	return s.prefix + ":tok:" + typ + ":" + hex.EncodeToString(valueHash[:])
}

func (s *SecurityTokenStore) ownerKey(typ, ownerID string) string {
	return s.prefix + ":own:" + typ + ":" + ownerID
}

// Save persists the record with a TTL running to its expiry and adds
// it to the owner index. Records already expired are rejected.
func (s *SecurityTokenStore) Save(ctx context.Context, record *SecurityToken) error {
	if record.Type == "" || record.OwnerID == "" {
		return errors.New("token record missing type or owner")
	}

	ttl := time.Until(time.Unix(record.ExpiresAt, 0))
	if ttl <= 0 {
		return errors.New("token record already expired")
	}

	encoded, err := encodeSecurityToken(record)
	if err != nil {
		return err
	}

	key := s.key(record.Type, record.ValueHash)
	ownerKey := s.ownerKey(record.Type, record.OwnerID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, key, encoded, ttl)
		pipe.SAdd(ctx, ownerKey, hex.EncodeToString(record.ValueHash[:]))
		// The index must outlive the longest-lived member.
		pipe.Expire(ctx, ownerKey, ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// FindActive returns the record for (value, typ) if it exists, has not
// expired, is not blacklisted, and — when ownerID is non-empty —
// belongs to that owner. Every failure mode collapses to ErrNotFound.
func (s *SecurityTokenStore) FindActive(ctx context.Context, value, typ, ownerID string) (*SecurityToken, error) {
	valueHash := HashValue(value)

	data, err := s.redis.Get(ctx, s.key(typ, valueHash)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	record, err := decodeSecurityToken(data)
	if err != nil {
		return nil, err
	}
	record.Type = typ

	if !activeMatch(record, valueHash, ownerID) {
		return nil, ErrNotFound
	}

	return record, nil
}

// ConsumeActive atomically finds and deletes the record for
// (value, typ). Two concurrent consumers of the same token cannot both
// succeed: the lookup and the delete run under WATCH, and a conflicting
// write aborts the transaction and retries.
func (s *SecurityTokenStore) ConsumeActive(ctx context.Context, value, typ, ownerID string) (*SecurityToken, error) {
	const maxRetries = 4

	valueHash := HashValue(value)
	key := s.key(typ, valueHash)

	for i := 0; i < maxRetries; i++ {
		var matched *SecurityToken

		err := s.redis.Watch(ctx, func(tx *redis.Tx) error {
			data, err := tx.Get(ctx, key).Bytes()
			if err != nil {
				return err
			}

			record, err := decodeSecurityToken(data)
			if err != nil {
				return err
			}
			record.Type = typ

			if !activeMatch(record, valueHash, ownerID) {
				return ErrNotFound
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Del(ctx, key)
				pipe.SRem(ctx, s.ownerKey(typ, record.OwnerID), hex.EncodeToString(valueHash[:]))
				return nil
			})
			if err != nil {
				return err
			}

			matched = record
			return nil
		}, key)

		if err == redis.TxFailedErr {
			continue
		}
		if err != nil {
			switch {
			case errors.Is(err, redis.Nil), errors.Is(err, ErrNotFound):
				return nil, ErrNotFound
			default:
				return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
			}
		}

		return matched, nil
	}

	return nil, ErrNotFound
}

// Delete removes the record for (value, typ) regardless of its state.
// Deleting a record that does not exist returns ErrNotFound.
func (s *SecurityTokenStore) Delete(ctx context.Context, value, typ string) error {
	valueHash := HashValue(value)
	key := s.key(typ, valueHash)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	record, err := decodeSecurityToken(data)
	if err != nil {
		return err
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.SRem(ctx, s.ownerKey(typ, record.OwnerID), hex.EncodeToString(valueHash[:]))
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// DeleteAllForOwner removes every record of the given type belonging
// to the owner, along with the owner index itself.
func (s *SecurityTokenStore) DeleteAllForOwner(ctx context.Context, ownerID, typ string) error {
	ownerKey := s.ownerKey(typ, ownerID)

	hashes, err := s.redis.SMembers(ctx, ownerKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(hashes) == 0 {
		return nil
	}

	keys := make([]string, 0, len(hashes)+1)
	for _, h := range hashes {
		keys = append(keys, s.prefix+":tok:"+typ+":"+h)
	}
	keys = append(keys, ownerKey)

	if err := s.redis.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// Blacklist flags the record for (value, typ) so FindActive and
// ConsumeActive stop matching it. The record keeps its remaining TTL.
func (s *SecurityTokenStore) Blacklist(ctx context.Context, value, typ string) error {
	valueHash := HashValue(value)
	key := s.key(typ, valueHash)

	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	record, err := decodeSecurityToken(data)
	if err != nil {
		return err
	}

	ttl := time.Until(time.Unix(record.ExpiresAt, 0))
	if ttl <= 0 {
		return ErrNotFound
	}

	record.Blacklisted = true
	encoded, err := encodeSecurityToken(record)
	if err != nil {
		return err
	}

	if err := s.redis.Set(ctx, key, encoded, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

func activeMatch(record *SecurityToken, valueHash [32]byte, ownerID string) bool {
	if time.Now().Unix() >= record.ExpiresAt {
		return false
	}
	if record.Blacklisted {
		return false
	}
	if subtle.ConstantTimeCompare(record.ValueHash[:], valueHash[:]) != 1 {
		return false
	}
	if ownerID != "" && record.OwnerID != ownerID {
		return false
	}
	return true
}

func encodeSecurityToken(record *SecurityToken) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteByte(tokenRecordVersionV1)

	var flags byte
	if record.Blacklisted {
		flags |= 1
	}
	buf.WriteByte(flags)

	if err := binary.Write(&buf, binary.BigEndian, record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []string{record.ID, record.OwnerID} {
		if len(field) > 65535 {
			return nil, errors.New("token record field too long")
		}
		if err := binary.Write(&buf, binary.BigEndian, uint16(len(field))); err != nil {
			return nil, err
		}
		buf.WriteString(field)
	}

	buf.Write(record.ValueHash[:])

	return buf.Bytes(), nil
}

func decodeSecurityToken(data []byte) (*SecurityToken, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}
	if version != tokenRecordVersionV1 {
		return nil, errors.New("invalid token record version")
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, err
	}

	record := &SecurityToken{
		Blacklisted: flags&1 != 0,
	}

	if err := binary.Read(reader, binary.BigEndian, &record.ExpiresAt); err != nil {
		return nil, err
	}

	for _, field := range []*string{&record.ID, &record.OwnerID} {
		var length uint16
		if err := binary.Read(reader, binary.BigEndian, &length); err != nil {
			return nil, err
		}
		raw := make([]byte, length)
		if _, err := io.ReadFull(reader, raw); err != nil {
			return nil, err
		}
		*field = string(raw)
	}

	if _, err := io.ReadFull(reader, record.ValueHash[:]); err != nil {
		return nil, err
	}

	return record, nil
}
