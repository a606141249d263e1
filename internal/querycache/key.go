package querycache

import "net/url"

// Key identifies one cache entry: a resource family plus its filter parameters.
// Keys are comparable and equal parameters always encode to the same Params.
type Key struct {
	Family string
	Params string
}

// NewKey builds a key with canonically ordered parameters.
func NewKey(family string, params map[string]string) Key {
	v := make(url.Values, len(params))
	for name, value := range params {
		v.Set(name, value)
	}
	return Key{Family: family, Params: v.Encode()}
}

func (k Key) String() string {
	if k.Params == "" {
		return k.Family
	}
	return k.Family + "?" + k.Params
}
