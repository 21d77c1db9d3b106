package query

import (
	"net/url"
	"strings"

	"auditview/internal/order"
	"auditview/internal/record"
)

// URL query parameter names for a State.
const (
	ParamName     = "name"
	ParamTitle    = "title"
	ParamDate     = "date"
	ParamField    = "field"
	ParamSortKey  = "sort_key"
	ParamSortType = "sort_type"
)

// StateFromValues reads a State from URL query parameters.
//
// sort_key takes any field name, id included. An unknown sort_key drops
// the sort entirely. A known sort_key with a missing or unknown sort_type
// sorts descending. PageSize is left zero; it comes from preferences, not
// the URL.
func StateFromValues(v url.Values) State {
	s := State{
		Name:  v.Get(ParamName),
		Title: v.Get(ParamTitle),
		Date:  v.Get(ParamDate),
		Field: v.Get(ParamField),
	}

	f, err := record.ParseField(v.Get(ParamSortKey))
	if err != nil {
		return s
	}
	dir, err := order.ParseDirection(v.Get(ParamSortType))
	if err != nil {
		dir = order.Descending
	}
	s.Sort = order.Order{Field: f, Direction: dir}
	return s
}

// Values encodes s as URL query parameters. Blank filters and an inactive
// sort are omitted, so StateFromValues(s.Values()) reproduces s up to
// surrounding whitespace and PageSize.
func (s State) Values() url.Values {
	v := url.Values{}
	set := func(key, val string) {
		if val = strings.TrimSpace(val); val != "" {
			v.Set(key, val)
		}
	}
	set(ParamName, s.Name)
	set(ParamTitle, s.Title)
	set(ParamDate, s.Date)
	set(ParamField, s.Field)
	if s.Sort.Active() {
		v.Set(ParamSortKey, s.Sort.Field.String())
		v.Set(ParamSortType, s.Sort.Direction.String())
	}
	return v
}
