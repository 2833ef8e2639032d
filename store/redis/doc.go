// Package redis implements store.Store using Redis for high-throughput
// ephemeral deployments. Status records and DLQ entries are stored as
// Redis Hashes with Sets for enumeration; attempt history is kept as a
// msgpack-encoded List per job.
//
// The caller owns the Redis client lifecycle — this package never closes
// it. Pass the client through the constructor:
//
//	client := redis.NewClient(&redis.Options{Addr: "localhost:6379"})
//	s := redisstore.New(client)
//	if err := s.Ping(ctx); err != nil { ... }
package redis
