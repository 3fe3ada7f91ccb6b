package redis

import (
	"context"
	"errors"
	"net/url"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/endb-go/endb"
	"github.com/endb-go/endb/namespace"
	"github.com/endb-go/endb/util"
)

func init() {
	endb.Register(func(ctx context.Context, d endb.Descriptor) (endb.Adapter, error) {
		redisOpts, err := ParseURI(d.URI, d.Timeout)
		if err != nil {
			return nil, err
		}
		return NewClient(ctx, Options{
			Namespace:    d.Namespace,
			RedisOptions: redisOpts,
		})
	}, "redis", "rediss")
}

// ParseURI converts a connection string like "redis://:password@localhost:6379/0"
// or "rediss://..." to go-redis options.
func ParseURI(uri string, timeout time.Duration) (*redis.Options, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return nil, endb.Validationf("invalid Redis connection string: %v", err)
	}
	// go-redis rejects options it doesn't know.
	q := u.Query()
	q.Del("timeout")
	u.RawQuery = q.Encode()
	redisOpts, err := redis.ParseURL(u.String())
	if err != nil {
		return nil, endb.Validationf("invalid Redis connection string: %v", err)
	}
	if timeout > 0 {
		redisOpts.DialTimeout = timeout
	}
	return redisOpts, nil
}

// Client is an endb.Adapter implementation for Redis.
// Besides the key-value pairs it maintains one set per namespace ("namespace:<ns>")
// with the keys of the namespace, which Clear and All use instead of scanning the keyspace.
type Client struct {
	c         *redis.Client
	namespace string
	guard     *util.Guard
}

// Set stores the given value for the given key and adds the key to the namespace set.
// The key must not be "".
func (c Client) Set(ctx context.Context, k, v string) error {
	if err := c.check(k); err != nil {
		return err
	}

	_, err := c.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, k, v, 0)
		pipe.SAdd(ctx, namespace.SideSet(c.namespace), k)
		return nil
	})
	return err
}

// Get retrieves the stored value for the given key.
// If no value is found it returns ("", false, nil).
// The key must not be "".
func (c Client) Get(ctx context.Context, k string) (string, bool, error) {
	if err := c.check(k); err != nil {
		return "", false, err
	}

	v, err := c.c.Get(ctx, k).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, err
	}
	return v, true, nil
}

// Delete deletes the stored value for the given key and removes the key from the namespace set.
// Deleting a non-existing key-value pair does NOT lead to an error.
// The key must not be "".
func (c Client) Delete(ctx context.Context, k string) (bool, error) {
	if err := c.check(k); err != nil {
		return false, err
	}

	var del *redis.IntCmd
	_, err := c.c.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, k)
		pipe.SRem(ctx, namespace.SideSet(c.namespace), k)
		return nil
	})
	if err != nil {
		return false, err
	}
	return del.Val() > 0, nil
}

// Clear deletes all keys of the namespace set and the set itself.
func (c Client) Clear(ctx context.Context) error {
	if err := c.guard.Check(); err != nil {
		return err
	}

	set := namespace.SideSet(c.namespace)
	members, err := c.c.SMembers(ctx, set).Result()
	if err != nil {
		return err
	}
	return c.c.Del(ctx, append(members, set)...).Err()
}

// All returns all key-value pairs of the namespace set.
func (c Client) All(ctx context.Context) (map[string]string, error) {
	if err := c.guard.Check(); err != nil {
		return nil, err
	}

	members, err := c.c.SMembers(ctx, namespace.SideSet(c.namespace)).Result()
	if err != nil {
		return nil, err
	}
	result := make(map[string]string, len(members))
	if len(members) == 0 {
		return result, nil
	}
	values, err := c.c.MGet(ctx, members...).Result()
	if err != nil {
		return nil, err
	}
	for i, v := range values {
		// Keys that expired or were deleted by someone else come back as nil.
		if s, ok := v.(string); ok {
			result[members[i]] = s
		}
	}
	return result, nil
}

// Close closes the client.
// It must be called to release any open resources.
func (c Client) Close() error {
	if !c.guard.Close() {
		return nil
	}
	return c.c.Close()
}

func (c Client) check(k string) error {
	if err := c.guard.Check(); err != nil {
		return err
	}
	return util.CheckKey(k)
}

// Options are the options for the Redis client.
type Options struct {
	// Address of the Redis server, including the port.
	// Optional ("localhost:6379" by default).
	Address string
	// Password for the Redis server.
	// Optional ("" by default).
	Password string
	// DB to use.
	// Optional (0 by default).
	DB int
	// Namespace of the keys, used for the namespace set.
	// Optional ("endb" by default).
	Namespace string
	// Timeout for dialing the Redis server.
	// Optional (5 seconds by default).
	Timeout time.Duration

	// RedisOptions are passed to the go-redis client as they are, for example the ones returned by ParseURI.
	// Address, Password, DB and Timeout are ignored if they're set.
	// Optional.
	RedisOptions *redis.Options
}

// DefaultOptions is an Options object with default values.
// Address: "localhost:6379", Password: "", DB: 0, Namespace: "endb", Timeout: 5s
var DefaultOptions = Options{
	Address:   "localhost:6379",
	Namespace: "endb",
	Timeout:   5 * time.Second,
}

// NewClient creates a new Redis client.
//
// You must call the Close() method on the client when you're done working with it.
func NewClient(ctx context.Context, options Options) (Client, error) {
	result := Client{}

	// Set default values
	if options.Address == "" {
		options.Address = DefaultOptions.Address
	}
	if options.Namespace == "" {
		options.Namespace = DefaultOptions.Namespace
	}
	if options.Timeout == 0 {
		options.Timeout = DefaultOptions.Timeout
	}

	redisOpts := options.RedisOptions
	if redisOpts == nil {
		redisOpts = &redis.Options{
			Addr:        options.Address,
			Password:    options.Password,
			DB:          options.DB,
			DialTimeout: options.Timeout,
		}
	}
	client := redis.NewClient(redisOpts)

	err := client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()
		return result, err
	}

	result.c = client
	result.namespace = options.Namespace
	result.guard = new(util.Guard)

	return result, nil
}
