// Package sensorgrid provides a Go client for the SensorGrid cloud IoT API.
// It covers the REST resources (projects, devices, organizations, members,
// roles, permissions, service accounts, data connectors, the device emulator)
// and live device events over server-sent events.
//
// Authentication, token refresh, rate-limit retries, pagination and stream
// reconnection are handled automatically; resource methods are thin typed
// wrappers over a shared request pipeline.
//
// # Basic usage
//
//	client, err := sensorgrid.NewClient(&sensorgrid.Config{
//		Email:  "my-sa@example.serviceaccount.sensorgrid.io",
//		KeyID:  "my-key-id",
//		Secret: "my-key-secret",
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	ctx := context.Background()
//	if err := client.Connect(ctx); err != nil {
//		log.Fatal(err)
//	}
//
//	devices, err := client.ListDevices(ctx, "abc123", nil)
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Authentication
//
// The client authenticates with a service account key using the OAuth2
// JWT-bearer grant: a signed assertion is exchanged for a short-lived bearer
// token, which is cached and refreshed transparently while it has less than
// 60 seconds of validity left. One client's token is shared by concurrent
// CRUD calls and streams without duplicate refreshes. Logout discards the
// token and makes every operation fail fast until Connect is called again.
//
// # Pagination
//
// List methods fetch and concatenate every page before returning, preserving
// page order. Use DeviceIterator to consume large device collections one
// page at a time instead.
//
// # Rate limits
//
// HTTP 429 responses are retried after the delay the server asks for in
// Retry-After (5s when absent) without surfacing to the caller. If the
// server keeps answering 429, the retry budget eventually runs out and the
// call fails with KindRateLimited.
//
// # Event streams
//
// SubscribeEvents opens a persistent server-sent-events connection and
// dispatches each device event to the handler registered for its type. Lost
// connections are re-established automatically with exponential backoff and
// a freshly refreshed token; the subscription only ends when Close is
// called. Events for types without a registered handler are dropped.
//
// # Errors
//
// Failures carry a Kind from the pkg/errors taxonomy; use errors.KindOf to
// classify without matching concrete types:
//
//	if sgerrors.KindOf(err) == sgerrors.KindNotFound {
//		// device was deleted
//	}
package sensorgrid
