// Package lua runs script mods on gopher-lua.
//
// Each script mod gets its own sandboxed state with only the base, table,
// string and math libraries; file, OS and module loading functions are
// removed. The entrypoint declares listeners through the sledge module:
//
//	sledge.on("ShutdownEvent", function(e)
//	    if not e:get("forced") then
//	        e:cancel()
//	    end
//	end, { priority = "HIGH" })
//
//	sledge.on("ModLoadedEvent", function(e)
//	    sledge.log("info", "saw mod", { id = e:get("mod_id") })
//	end, { priority = "MONITOR", receive_cancelled = true })
//
// Event names are the Go type names registered in the host's event catalog.
// The event object supports name(), cancellable(), cancelled(), cancel([bool]),
// get([path]) and set(path, value); paths use gjson syntax over the event's
// JSON form. An event object is only valid while its handler runs.
//
// The module also exposes sledge.log(level, msg [, fields]), sledge.events(),
// sledge.is_mod_loaded(id), and the mod_id, version, environment,
// minecraft_version and loader_version fields. print writes to the mod logger.
package lua
