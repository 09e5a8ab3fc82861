package storage

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

type ObjectURI struct {
	Scheme string
	Bucket string
	Key    string
}

func (u ObjectURI) String() string {
	return u.Scheme + "://" + u.Bucket + "/" + u.Key
}

// Filename is the last path element of the key.
func (u ObjectURI) Filename() string {
	return path.Base(u.Key)
}

func ParseURI(uri string) (ObjectURI, error) {
	parsed, err := url.Parse(uri)
	if err != nil {
		return ObjectURI{}, fmt.Errorf("%w '%s': %w", ErrInvalidURI, uri, err)
	}

	obj := ObjectURI{
		Scheme: strings.ToLower(parsed.Scheme),
		Bucket: parsed.Host,
		Key:    strings.TrimPrefix(parsed.Path, "/"),
	}

	if obj.Scheme == "" || obj.Bucket == "" || obj.Key == "" || strings.HasSuffix(obj.Key, "/") {
		return ObjectURI{}, fmt.Errorf("%w '%s': expected scheme://bucket/key", ErrInvalidURI, uri)
	}

	return obj, nil
}
