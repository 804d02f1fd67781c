// Package mod loads Sledge mods.
//
// A mod is either linked into the host binary and handed to NewHost with
// WithBuiltin, or a script mod living in its own directory below the mods
// dir:
//
//	mods/
//	  greeter/
//	    sledge.mod.toml
//	    main.lua
//
// with a manifest such as:
//
//	id = "greeter"
//	version = "1.0.0"
//	environment = "server"
//	dependencies = ["core"]
//
// Host.Load initializes builtin mods first, then script mods whose
// environment matches the host, ordered so that each mod follows its
// dependencies. Each mod is recorded in the API and announced with a
// ModLoadedEvent; a ModsReadyEvent closes the sequence.
package mod
