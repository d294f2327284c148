package platform

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/edgelet/hostbridge/errors"
	"github.com/edgelet/hostbridge/hostval"
)

// Fetcher performs outbound HTTP on behalf of suspended guest calls.
// Requests and responses travel as host objects so the bridge can hand
// them across the boundary without a dedicated codec.
type Fetcher struct {
	client *resty.Client
	log    *zap.Logger
}

func NewFetcher(timeout time.Duration, log *zap.Logger) *Fetcher {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("User-Agent", "hostbridge/1.0")
	return &Fetcher{client: client, log: log}
}

// Do executes the request described by req:
//
//	{url, method?, headers?, body?}
//
// and returns {status, statusText, headers, body}. Transport failures
// return an error; HTTP error statuses are data, not errors.
func (f *Fetcher) Do(ctx context.Context, req *hostval.Object) (*hostval.Object, error) {
	if req == nil {
		return nil, errors.InvalidInput(errors.PhaseCall, "fetch request is not an object")
	}

	rawURL, ok := req.Get("url")
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseCall, "fetch request has no url")
	}
	url, ok := rawURL.(string)
	if !ok || url == "" {
		return nil, errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(rawURL), "url string")
	}

	method := "GET"
	if raw, ok := req.Get("method"); ok {
		if m, ok := raw.(string); ok && m != "" {
			method = strings.ToUpper(m)
		}
	}

	r := f.client.R().SetContext(ctx)

	if raw, ok := req.Get("headers"); ok {
		headers, ok := raw.(*hostval.Object)
		if !ok {
			return nil, errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(raw), "headers object")
		}
		for _, k := range headers.Keys() {
			if v, ok := headers.Get(k); ok {
				if s, ok := v.(string); ok {
					r.SetHeader(k, s)
				}
			}
		}
	}

	if raw, ok := req.Get("body"); ok {
		switch body := raw.(type) {
		case nil, hostval.Undefined:
		case string:
			r.SetBody(body)
		case hostval.Bytes:
			r.SetBody([]byte(body))
		case *hostval.Object, *hostval.Array:
			encoded, err := hostval.Stringify(body)
			if err != nil {
				return nil, err
			}
			r.SetHeader("Content-Type", "application/json").SetBody(encoded)
		default:
			return nil, errors.TypeMismatch(errors.PhaseCall, hostval.TypeName(raw), "body string, bytes or object")
		}
	}

	started := time.Now()
	resp, err := r.Execute(method, url)
	if err != nil {
		f.log.Warn("outbound fetch failed",
			zap.String("method", method),
			zap.String("url", url),
			zap.Error(err))
		return nil, errors.Wrap(errors.PhaseCall, errors.KindNotFound, err, "fetch "+url)
	}

	f.log.Debug("outbound fetch",
		zap.String("method", method),
		zap.String("url", url),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("elapsed", time.Since(started)))

	headers := hostval.NewObject()
	for k, v := range resp.Header() {
		if len(v) > 0 {
			headers.Set(k, v[0])
		}
	}

	out := hostval.NewObject()
	out.Set("status", float64(resp.StatusCode()))
	out.Set("statusText", resp.Status())
	out.Set("headers", headers)
	out.Set("body", resp.String())
	return out, nil
}
