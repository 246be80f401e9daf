// Package browser drives the single live browser session through Playwright.
//
// The package maintains exactly one browser/page pair for the process
// lifetime. All navigation and capture work funnels through an operation
// queue so that concurrently scheduled capture jobs never interleave against
// the shared page.
//
// # Architecture
//
// The package is built around three core concepts:
//
//  1. Controller: owns the page, the navigation state machine, and the
//     session cache of what the page currently shows
//  2. OpQueue: serializes atomic navigate+capture units in submission order
//  3. ScriptSet: the page-side scripts (auth seeding, readiness probing,
//     toast dismissal, locale/theme switching) for the supported dashboard
//
// # Navigation state machine
//
// Each queued unit navigates in one of three ways, keyed on the cached last
// path:
//
//   - unset: first load, with the auth seed installed before content loads
//   - different path: auth re-injection plus a full reload, because
//     client-side routing between dashboard views is unreliable
//   - same path: no reload; only changed locale/theme/zoom settings are
//     re-applied
//
// The session cache is best effort: any navigation or capture error clears
// it, forcing the next attempt through the full-load path.
package browser
