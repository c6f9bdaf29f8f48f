// Package config defines the server configuration structure.
package config

import (
	"reflect"
	"sort"
)

// Keys returns the dotted path of every ServerConfig setting, sorted.
// Paths follow the koanf tags, e.g. "metrics.rate_limit".
func Keys() []string {
	var keys []string
	collectKeys(reflect.TypeOf(ServerConfig{}), "", &keys)
	sort.Strings(keys)
	return keys
}

func collectKeys(t reflect.Type, prefix string, keys *[]string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("koanf")
		if tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct {
			collectKeys(f.Type, path, keys)
			continue
		}
		*keys = append(*keys, path)
	}
}
