// Package inventory defines the domain model of the household inventory
// tracker — locations, image regions, items — together with the structured
// error type shared by the stores, the HTTP API and the CLI.
//
// Locations form a tree via ParentID. Each location may carry one uploaded
// image; regions are named rectangles in that image's natural pixel space,
// edited interactively by pkg/editor. Items live in a location and
// optionally in one of its regions.
package inventory
