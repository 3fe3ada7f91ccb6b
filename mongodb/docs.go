/*
Package mongodb contains an implementation of the `endb.Adapter` interface for MongoDB.

Every key-value pair is stored as document {key: <physical key>, value: <encoded value>}.
The collection gets a unique index on "key", which is created when the client is created.

Note: If you use a sharded cluster, you must use "key" as the shard key!
You should also use hashed sharding as opposed to ranged sharding to enable more evenly distributed data no matter how your key looks like.
*/
package mongodb
