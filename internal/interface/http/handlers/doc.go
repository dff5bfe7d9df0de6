// Package handlers contains reusable HTTP building blocks for the API
// server: composite health checks and middleware.
//
// Health checks are registered by name and run in parallel:
//
//	checker := handlers.NewCompositeHealthChecker("0.1.0")
//	checker.AddCheck("snapshot", handlers.NewLoadCheck(workspace.Load))
//	checker.AddCheck("redis", handlers.NewPingCheck(cache))
//
// Middleware compose with Chain:
//
//	h := handlers.ChainHandler(api,
//	    handlers.SecurityHeadersMiddleware,
//	    handlers.NoCacheMiddleware,
//	    handlers.BasicAuth(accounts, "classpoint", nil).Middleware,
//	)
package handlers
