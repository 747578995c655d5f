package biller

import "strings"

type Registry struct {
	billers map[string]Biller
}

func NewRegistry(billers ...Biller) *Registry {
	items := make(map[string]Biller, len(billers))
	for _, b := range billers {
		items[b.Name()] = b
	}
	return &Registry{billers: items}
}

func (r *Registry) Get(name string) (Biller, error) {
	b, ok := r.billers[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, ErrBillerNotSupported
	}
	return b, nil
}
