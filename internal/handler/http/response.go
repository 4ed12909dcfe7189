package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gearvn/storefront/internal/checkout"
	"github.com/gearvn/storefront/pkg/httputil"
	"github.com/gearvn/storefront/pkg/validator"
)

func toNotice(n *checkout.Notice) *httputil.Notice {
	if n == nil {
		return nil
	}
	return &httputil.Notice{Level: n.Level, Message: n.Message}
}

func toRedirect(r *checkout.Redirect) *httputil.Redirect {
	if r == nil {
		return nil
	}
	return &httputil.Redirect{Path: r.Path, DelayMs: r.Delay.Milliseconds()}
}

// decodeBody decodes and validates a JSON body. An empty body leaves dst at
// its zero value before validation.
func decodeBody(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return errors.New("invalid request body: " + err.Error())
	}
	return validator.Validate(dst)
}
