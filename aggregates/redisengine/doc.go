// Package redisengine implements the aggregates.Backend contract on Redis.
//
// The mapping is direct: id assignment uses INCR, projections live in
// plain keys (GET/SET/MGET), and the event history and known-ids logs are
// Redis lists (RPUSH/LRANGE), which preserve insertion order. Commit lands
// its writes inside one MULTI/EXEC transaction pipeline, so the event-log
// append, the projection write and the id registration become visible
// together.
//
// Common usage pattern:
//
//	client := redis.NewClient(&redis.Options{Addr: addr})
//	backend, err := redisengine.New(client, redisengine.WithLogger(logger))
//	if err != nil {
//		// handle error
//	}
//
//	repo, err := aggregates.NewRepository[core.User](core.UserRoot{}, "User", backend)
package redisengine
