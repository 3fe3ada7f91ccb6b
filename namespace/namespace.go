// Package namespace derives physical keys from logical keys.
//
// A physical key is always namespace + ":" + key. Keys are not escaped,
// so a namespace or key containing ":" can make two pairs collide
// (namespace "a", key "b:c" and namespace "a:b", key "c").
// Avoiding that is up to the caller.
package namespace

import "strings"

// Separator is put between the namespace and the key.
const Separator = ":"

// sideSetPrefix is the prefix of the set that tracks the members of a namespace
// in stores without scoped enumeration, like Redis.
const sideSetPrefix = "namespace" + Separator

// Wrap returns the physical key for the given namespace and logical key.
func Wrap(ns, key string) string {
	return ns + Separator + key
}

// Prefix returns the prefix that every physical key of the namespace starts with.
func Prefix(ns string) string {
	return ns + Separator
}

// Matches reports whether the physical key belongs to the namespace.
func Matches(physicalKey, ns string) bool {
	return strings.HasPrefix(physicalKey, Prefix(ns))
}

// Strip returns the logical key of a physical key of the namespace.
// If the physical key doesn't belong to the namespace it's returned unchanged.
func Strip(physicalKey, ns string) string {
	return strings.TrimPrefix(physicalKey, Prefix(ns))
}

// SideSet returns the name of the set that tracks the physical keys of the namespace.
func SideSet(ns string) string {
	return sideSetPrefix + ns
}
