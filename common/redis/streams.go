package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// Stream entry fields
const (
	FieldType = "type"
	FieldData = "data"
	FieldTime = "timestamp"
)

// AppendJSON XADDs one entry carrying kind, the JSON encoding of payload and
// the append time in unix seconds. maxLen > 0 trims the stream approximately.
func AppendJSON(ctx context.Context, client *Client, stream string, maxLen int64, kind string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode %s entry: %w", kind, err)
	}
	args := &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			FieldType: kind,
			FieldData: string(data),
			FieldTime: strconv.FormatInt(time.Now().Unix(), 10),
		},
	}
	if maxLen > 0 {
		args.MaxLen = maxLen
		args.Approx = true
	}
	return client.XAdd(ctx, args).Result()
}

// DecodeJSON unpacks an entry written by AppendJSON into out and returns its kind
func DecodeJSON(msg redis.XMessage, out any) (string, error) {
	kind, _ := msg.Values[FieldType].(string)
	data, ok := msg.Values[FieldData].(string)
	if !ok {
		return kind, fmt.Errorf("stream entry %s has no %s field", msg.ID, FieldData)
	}
	if err := json.Unmarshal([]byte(data), out); err != nil {
		return kind, fmt.Errorf("decode stream entry %s: %w", msg.ID, err)
	}
	return kind, nil
}
