package endb

import (
	"log/slog"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/endb-go/endb/codec"
)

const defaultName = "endb"

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Options are the options for an Endb.
type Options struct {
	// Namespace separates the keys of this Endb from the keys of other Endbs
	// that share the same backend. It must not contain ":" in a way that makes
	// "namespace:key" ambiguous, for example namespaces "a" and "a:b".
	// Optional ("endb" by default).
	Namespace string
	// Adapter selects the backend family explicitly (for example "sqlite"),
	// bypassing the detection by URI scheme.
	// Optional (derived from the URI by default).
	Adapter string
	// Name of the table in which relational adapters store the key-value pairs.
	// Must be a plain SQL identifier.
	// Optional ("endb" by default).
	Table string
	// Name of the MongoDB collection. Also used as bbolt bucket name if Table is empty.
	// Optional ("endb" by default).
	Collection string
	// Maximum length of a physical key ("namespace:key") for relational adapters,
	// used for the VARCHAR size of the key column.
	// Optional (255 by default).
	KeySize int
	// Timeout for lock contention on file based stores (SQLite busy timeout, bbolt file lock)
	// and for dialing network based stores.
	// Optional (5 seconds by default).
	Timeout time.Duration
	// Encoding format.
	// Optional (codec.JSON by default).
	Codec codec.Codec
	// Logger for connection events and operational errors.
	// Optional (slog.Default() by default).
	Logger *slog.Logger
	// OnError is called for every error an operation or the background connection attempt returns.
	// It's called synchronously, before the failing method returns.
	// Optional.
	OnError func(error)
}

// DefaultOptions is an Options object with default values.
// Namespace: "endb", Table: "endb", Collection: "endb", KeySize: 255, Timeout: 5s, Codec: codec.JSON
var DefaultOptions = Options{
	Namespace:  defaultName,
	Table:      defaultName,
	Collection: defaultName,
	KeySize:    255,
	Timeout:    5 * time.Second,
	Codec:      codec.JSON,
}

// Descriptor identifies a backend and how to connect to it.
// It's built once by New and passed to the adapter's Factory.
type Descriptor struct {
	// Adapter is the scheme name the factory was registered under.
	Adapter string
	// URI is the full connection string as passed to New.
	URI string
	// Location is the part of the URI between "<scheme>://" and "?",
	// for example the file path for file based stores.
	Location string
	// Params are the URI's query parameters.
	Params url.Values

	Namespace  string
	Table      string
	Collection string
	KeySize    int
	Timeout    time.Duration
	Logger     *slog.Logger
}

// ParseURI splits a connection string of the form
// <scheme>://<credentials>@<host>/<path-or-db>?<params> into its scheme,
// its location and its query parameters.
// An empty URI yields the "memory" scheme.
func ParseURI(uri string) (scheme, location string, params url.Values, err error) {
	if uri == "" {
		return "memory", "", url.Values{}, nil
	}
	i := strings.Index(uri, "://")
	if i <= 0 {
		return "", "", nil, Validationf("connection string %q doesn't start with <scheme>://", uri)
	}
	scheme = uri[:i]
	location = uri[i+len("://"):]
	params = url.Values{}
	if q := strings.IndexByte(location, '?'); q >= 0 {
		params, err = url.ParseQuery(location[q+1:])
		if err != nil {
			return "", "", nil, Validationf("invalid query in connection string: %v", err)
		}
		location = location[:q]
	}
	return scheme, location, params, nil
}

// newDescriptor applies the defaults to the options, validates them and builds the descriptor.
func newDescriptor(uri string, options *Options) (Descriptor, error) {
	if options.Namespace == "" {
		options.Namespace = DefaultOptions.Namespace
	}
	if options.Table == "" {
		options.Table = DefaultOptions.Table
	}
	if options.Collection == "" {
		options.Collection = DefaultOptions.Collection
	}
	if options.KeySize == 0 {
		options.KeySize = DefaultOptions.KeySize
	}
	if options.Timeout == 0 {
		options.Timeout = DefaultOptions.Timeout
	}
	if options.Codec == nil {
		options.Codec = DefaultOptions.Codec
	}
	if options.Logger == nil {
		options.Logger = slog.Default()
	}

	if options.KeySize < 0 {
		return Descriptor{}, Validationf("KeySize must not be negative, was %d", options.KeySize)
	}
	if options.Timeout < 0 {
		return Descriptor{}, Validationf("Timeout must not be negative, was %v", options.Timeout)
	}
	if !identifierPattern.MatchString(options.Table) {
		return Descriptor{}, Validationf("Table must be a plain SQL identifier, was %q", options.Table)
	}

	scheme, location, params, err := ParseURI(uri)
	if err != nil {
		return Descriptor{}, err
	}
	if options.Adapter != "" {
		scheme = options.Adapter
	}

	return Descriptor{
		Adapter:    scheme,
		URI:        uri,
		Location:   location,
		Params:     params,
		Namespace:  options.Namespace,
		Table:      options.Table,
		Collection: options.Collection,
		KeySize:    options.KeySize,
		Timeout:    options.Timeout,
		Logger:     options.Logger.With("component", "endb", "adapter", scheme, "namespace", options.Namespace),
	}, nil
}
