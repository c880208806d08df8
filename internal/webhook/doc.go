// Package webhook implements the inbound notification endpoint.
//
// A single POST path accepts event notifications from the payment platform.
// Each one is authenticated with the shared secret before its event is
// handed to a Dispatcher, usually a *router.Router.
//
// # Security Model
//
// - HMAC-SHA256 signatures compared in constant time (see package signature)
// - Body size limits enforced before verification
// - Failure responses never say which check failed; the reason is logged
// - Request logging excludes payloads
//
// # Configuration
//
//	webhook:
//	  listen: "127.0.0.1:8081"
//	  path: /webhook
//	  secret: ${PAYKIT_WEBHOOK_SECRET}
//	  signature_header: Webhook-Signature
//	  max_body_size: 1MB
//	  tolerance: 0s
//
// # Request Flow
//
//  1. A method other than POST is answered with 405
//  2. A missing signature header is answered with 400
//  3. A body over max_body_size is answered with 413
//  4. Signature verification or event parsing failure is answered with 400
//  5. The event is dispatched; an unmatched type is not an error
//  6. 200 {"code":0,"msg":"success"} acknowledges the notification
//
// A dispatcher error or a panic while handling is answered with 500 and
// never reaches the listener.
//
// # Example Usage
//
//	rt, err := router.New(
//		router.Rule{Prefix: "refund", Handler: refunds},
//		router.Rule{Prefix: "payout", Handler: payouts},
//	)
//	if err != nil {
//		return err
//	}
//	server, err := webhook.New(webhook.Config{Secret: os.Getenv("PAYKIT_WEBHOOK_SECRET")}, rt, logger)
//	if err != nil {
//		return err
//	}
//	return server.Start(ctx)
package webhook
