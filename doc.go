// Package portal is a client for an authentication REST backend.
//
// It covers sign up, sign in, profile viewing and editing, password change
// and token based session persistence.
//
// Client:
//   - Client wraps net/http with a fixed base URL and timeout. Request and
//     response interceptors attach the bearer token of the bound Session and
//     log traffic. Every failure surfaces as an *APIError; ErrorMessage turns
//     any value into a display ready string.
//
// Sessions:
//   - Session stores the token and the user record in a store.Store. The web
//     portal namespaces one Session per browser, the CLI uses a single one.
//
// Services:
//   - AuthService and UserService combine validation, the REST calls, the
//     Session and the query cache. Successful sign in invalidates cached user
//     data; logout clears everything.
//
// Activity sinks:
//   - ActivitySink receives sign in, sign up and logout events. Sinks run best
//     effort; errors are logged and never fail the operation.
package portal
