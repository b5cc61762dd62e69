package portal

import (
	"context"
	"net/http"

	"github.com/goliatone/go-print"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// RequestInterceptor may change an outgoing request. Returning an error
// aborts the request with a KindSetup failure.
type RequestInterceptor func(ctx context.Context, c *Client, req *http.Request) error

// SuccessInterceptor observes a 2xx response. The body is already consumed.
type SuccessInterceptor func(ctx context.Context, c *Client, res *http.Response)

// FailureInterceptor observes a failed request before the error is returned.
type FailureInterceptor func(ctx context.Context, c *Client, err *APIError)

// BearerToken sets the Authorization header when the bound session holds a
// token.
func BearerToken() RequestInterceptor {
	return func(ctx context.Context, c *Client, req *http.Request) error {
		token, err := c.Session().Token(ctx)
		if err != nil {
			return err
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// PropagateTrace writes the span context of ctx into the request headers
// using the global propagator.
func PropagateTrace() RequestInterceptor {
	return func(ctx context.Context, _ *Client, req *http.Request) error {
		otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))
		return nil
	}
}

func LogRequest() RequestInterceptor {
	return func(_ context.Context, c *Client, req *http.Request) error {
		c.Logger().Debug("API Request", "method", req.Method, "url", req.URL.String())
		return nil
	}
}

func LogResponse() SuccessInterceptor {
	return func(_ context.Context, c *Client, res *http.Response) {
		url := ""
		if res.Request != nil && res.Request.URL != nil {
			url = res.Request.URL.String()
		}
		c.Logger().Debug("API Response", "status", res.StatusCode, "url", url)
	}
}

// LogFailure logs a failure according to where it happened.
func LogFailure() FailureInterceptor {
	return func(_ context.Context, c *Client, err *APIError) {
		logger := c.Logger()

		switch err.Kind {
		case KindServer:
			logger.Error("API Error",
				"status", err.Status,
				"message", err.PayloadMessage(),
				"url", err.URL,
			)
			if err.Status == http.StatusForbidden {
				logger.Warn("Access forbidden", "payload", print.MaybePrettyJSON(err.Payload))
			}
			if err.Status >= http.StatusInternalServerError {
				logger.Error("Server error", "payload", print.MaybePrettyJSON(err.Payload))
			}
		case KindTransport:
			logger.Error("Network Error", "error", err.Error(), "url", err.URL)
		case KindSetup:
			logger.Error("Request Setup Error", "error", err.Error(), "url", err.URL)
		}
	}
}

// ClearSessionOnUnauthorized drops the bound session when the backend
// rejects its token.
func ClearSessionOnUnauthorized() FailureInterceptor {
	return func(ctx context.Context, c *Client, err *APIError) {
		if err.StatusCode() != http.StatusUnauthorized {
			return
		}
		if cerr := c.Session().Clear(context.WithoutCancel(ctx)); cerr != nil {
			c.Logger().Warn("unable to clear session", "error", cerr)
		}
	}
}
