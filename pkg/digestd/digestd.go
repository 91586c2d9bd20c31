// Package digestd provides the public API for embedding the meeting digest
// service.
package digestd

import (
	"github.com/tjfontaine/meeting-digest/internal/registration"
	"github.com/tjfontaine/meeting-digest/internal/runtime"
)

// App is the assembled service. See internal/runtime.App.
type App = runtime.App

// ServiceName labels traces and server spans.
const ServiceName = runtime.ServiceName

// Option is a functional option for configuring an App.
type Option = runtime.Option

// New creates an App with the given options.
// Example:
//
//	app, err := digestd.New(
//	    digestd.WithConfigFile("config.yaml"),
//	    digestd.WithLogger(logger),
//	)
var New = runtime.New

// RegisterBuiltins registers the built-in providers. Call it once before New.
var RegisterBuiltins = registration.RegisterBuiltins

// Configuration options
var (
	WithConfig     = runtime.WithConfig
	WithConfigFile = runtime.WithConfigFile
	WithLogger     = runtime.WithLogger

	// Storage
	WithStore = runtime.WithStore

	// Advanced options
	WithHTTPClient     = runtime.WithHTTPClient
	WithAutostartDelay = runtime.WithAutostartDelay
	WithRetrySleep     = runtime.WithRetrySleep
)
