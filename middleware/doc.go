// Package middleware provides uniqm.Middleware implementations for
// callback tracing, logging and panic capture.
//
//	mux := uniqm.NewMux()
//	mux.Use(middleware.Recover(logger), middleware.Logging(logger), middleware.Tracing())
package middleware
