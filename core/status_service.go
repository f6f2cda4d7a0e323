package core

import (
	"context"
	"encoding/json"
)

// StatusService reads the heartbeats every API instance publishes to Redis.
type StatusService struct {
	redis RedisClientRaw
}

func NewStatusService(redis RedisClientRaw) *StatusService {
	return &StatusService{redis: redis}
}

// Instances returns all heartbeats still alive in Redis.
func (s *StatusService) Instances(ctx context.Context) ([]InstanceHeartbeat, error) {
	iter := s.redis.Scan(ctx, 0, InstanceHeartbeatPrefix+"*", 100).Iterator()
	var res []InstanceHeartbeat
	for iter.Next(ctx) {
		val, err := s.redis.Get(ctx, iter.Val()).Result()
		if err != nil {
			continue
		}
		var hb InstanceHeartbeat
		if err := json.Unmarshal([]byte(val), &hb); err != nil {
			continue
		}
		res = append(res, hb)
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

// InstanceByID returns the heartbeat of a single instance.
func (s *StatusService) InstanceByID(ctx context.Context, id string) (*InstanceHeartbeat, error) {
	val, err := s.redis.Get(ctx, InstanceHeartbeatKey(id)).Result()
	if err != nil {
		return nil, err
	}
	var hb InstanceHeartbeat
	if err := json.Unmarshal([]byte(val), &hb); err != nil {
		return nil, err
	}
	return &hb, nil
}
