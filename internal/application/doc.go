// Package application provides dependency wiring for the keg sizer. It builds the
// optimizer and driver shared by the CLI commands and, for the serve command, the
// enclosure storage, prometheus metrics, API router and HTTP server.
package application
