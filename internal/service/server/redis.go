package server

import (
	"context"
	"encoding/json"
	"fmt"

	"sealedchat/internal/model"
)

// Offline delivery queue. Only sealed envelopes plus routing metadata ever
// enter the cache.

func (s *HttpServer) GetMessagesFromCache(ctx context.Context, to string) ([]*model.Message, error) {
	if s.redisService == nil {
		return nil, nil
	}

	key := fmt.Sprintf("to: %s", to)
	vals, err := s.redisService.LRange(ctx, key)
	if err != nil {
		return nil, err
	}

	var res []*model.Message
	for _, v := range vals {
		var m model.Message
		err := json.Unmarshal([]byte(v), &m)
		if err != nil {
			return nil, err
		}

		res = append(res, &m)
	}

	return res, nil
}

// DropMessagesFromCache clears a drained queue. Callers delete only after
// the messages have been delivered.
func (s *HttpServer) DropMessagesFromCache(ctx context.Context, to string) error {
	if s.redisService == nil {
		return nil
	}
	return s.redisService.Del(ctx, fmt.Sprintf("to: %s", to))
}

func (s *HttpServer) PutMessagesToCache(ctx context.Context, to string, messages []*model.Message) error {
	if s.redisService == nil {
		return nil
	}

	key := fmt.Sprintf("to: %s", to)
	var vals []interface{}
	for _, m := range messages {
		data, _ := json.Marshal(m)
		vals = append(vals, data)
	}

	return s.redisService.RPush(ctx, key, vals...)
}
