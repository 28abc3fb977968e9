package store

import (
	"encoding/json"
	"time"

	"github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"

	"loadtest-server/models"
)

// runsKey is the hash holding every run record, keyed by run ID
const runsKey = "loadtest:runs"

// RedisStore keeps records as JSON values of a single redis hash
type RedisStore struct {
	pool *redis.Pool
}

// NewRedisStore connects to addr and checks the connection with a PING
func NewRedisStore(addr string) (*RedisStore, error) {
	pool := &redis.Pool{
		MaxIdle:     3,
		IdleTimeout: 240 * time.Second,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", addr)
		},
	}

	conn := pool.Get()
	defer conn.Close()
	if _, err := conn.Do("PING"); err != nil {
		pool.Close()
		return nil, errors.Wrapf(err, "failed to reach redis at %s", addr)
	}

	return &RedisStore{pool: pool}, nil
}

func (s *RedisStore) Add(rec *models.RunRecord) error {
	if rec == nil || rec.ID == "" {
		return errors.New("record has no id")
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return errors.Wrap(err, "failed to encode run record")
	}

	conn := s.pool.Get()
	defer conn.Close()
	if _, err := conn.Do("HSET", runsKey, rec.ID, data); err != nil {
		return errors.Wrapf(err, "failed to store run %s", rec.ID)
	}
	return nil
}

func (s *RedisStore) Get(id string) (*models.RunRecord, error) {
	conn := s.pool.Get()
	defer conn.Close()

	data, err := redis.Bytes(conn.Do("HGET", runsKey, id))
	if err == redis.ErrNil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load run %s", id)
	}

	var rec models.RunRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, errors.Wrapf(err, "failed to decode run %s", id)
	}
	return &rec, nil
}

func (s *RedisStore) GetAll() ([]*models.RunRecord, error) {
	conn := s.pool.Get()
	defer conn.Close()

	values, err := redis.ByteSlices(conn.Do("HVALS", runsKey))
	if err != nil {
		return nil, errors.Wrap(err, "failed to list runs")
	}

	result := make([]*models.RunRecord, 0, len(values))
	for _, data := range values {
		var rec models.RunRecord
		if err := json.Unmarshal(data, &rec); err != nil {
			return nil, errors.Wrap(err, "failed to decode run record")
		}
		result = append(result, &rec)
	}
	sortByStart(result)
	return result, nil
}

func (s *RedisStore) Delete(id string) error {
	conn := s.pool.Get()
	defer conn.Close()

	n, err := redis.Int(conn.Do("HDEL", runsKey, id))
	if err != nil {
		return errors.Wrapf(err, "failed to delete run %s", id)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.pool.Close()
}
