package browser

import (
	"net/url"
	"strconv"
	"time"

	"github.com/vanderheijden86/databrowser/pkg/filter"
	"github.com/vanderheijden86/databrowser/pkg/token"
)

// DataAPI is the data service call every fetch is made against.
const DataAPI = "data"

// Param is one query parameter.
type Param struct {
	Key   string
	Value string
}

// Params is an ordered query: the scope parameter first, then one
// create-since parameter per active window in level order.
type Params []Param

// Get returns the value for key, and whether it was present.
func (p Params) Get(key string) (string, bool) {
	for _, kv := range p {
		if kv.Key == key {
			return kv.Value, true
		}
	}
	return "", false
}

// Values converts p to url.Values for the HTTP client.
func (p Params) Values() url.Values {
	v := make(url.Values, len(p))
	for _, kv := range p {
		v.Set(kv.Key, kv.Value)
	}
	return v
}

// Request is a fetch the caller must issue: call API with Params and hand
// the outcome back together with Token.
type Request struct {
	Token  token.Token
	API    string
	Params Params
	Scope  Scope
}

// BuildQuery computes the query for scope under filters at time now.
// Only the recognized windows are considered; see BuildQueryKeys.
func BuildQuery(scope Scope, filters *filter.State, now time.Time) Params {
	return BuildQueryKeys(scope, filters, now, filter.RecognizedKeys)
}

// BuildQueryKeys is BuildQuery over an explicit set of window keys. For each
// key with a set window the value is the cutoff in epoch seconds: zero for
// filter.Unbounded, otherwise now minus the window, floored at zero. Windows
// outside [0, filter.Unbounded] also send zero. Unset windows are left out.
// The scope parameter is passed through verbatim.
func BuildQueryKeys(scope Scope, filters *filter.State, now time.Time, keys []filter.Key) Params {
	p := make(Params, 0, len(keys)+1)
	if !scope.IsZero() {
		p = append(p, Param{Key: scope.Key(), Value: scope.Name()})
	}
	epoch := now.Unix()
	for _, k := range keys {
		w := filters.Get(k)
		if !w.IsSet() {
			continue
		}
		var since int64
		if w != filter.Unbounded && w.Valid() && 3600*int64(w) < epoch {
			since = epoch - 3600*int64(w)
		}
		p = append(p, Param{Key: string(k), Value: strconv.FormatInt(since, 10)})
	}
	return p
}
